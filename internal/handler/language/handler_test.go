package language

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualink/backend/internal/model/language"
)

func TestListLanguages(t *testing.T) {
	r := chi.NewRouter()
	New().RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/languages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Languages) != 5 || body.Languages[0].Value != language.English {
		t.Fatalf("unexpected languages: %+v", body.Languages)
	}
	if body.TransliterationTarget.Value != language.Roman {
		t.Fatalf("unexpected sentinel: %+v", body.TransliterationTarget)
	}
	if len(body.TransliterationRequired) != 2 {
		t.Fatalf("expected Telugu and Kannada, got %v", body.TransliterationRequired)
	}
}
