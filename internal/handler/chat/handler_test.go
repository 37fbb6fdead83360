package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatModel "github.com/zhouzirui/lingualink/backend/internal/model/chat"
	"github.com/zhouzirui/lingualink/backend/internal/model/language"
	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

type upperTranslator struct {
	fail bool
}

func (t upperTranslator) Translate(_ context.Context, req translate.Request) (string, error) {
	if t.fail {
		return "", translate.ErrTranslationFailed
	}
	return strings.ToUpper(req.Text), nil
}

func (t upperTranslator) Transliterate(ctx context.Context, req translate.Request) (string, error) {
	return t.Translate(ctx, req)
}

type idleTask struct{}

func (idleTask) Stop() bool { return true }

type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) chatservice.Task { return idleTask{} }

var asha = user.User{ID: "u-asha", DisplayName: "Asha"}

func setupRouter(t *testing.T, translator translate.Translator) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	chatSvc, err := chatservice.NewService(translator, chatservice.Config{}, chatservice.WithScheduler(idleScheduler{}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authService.WithUser(req.Context(), asha)))
		})
	})
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createConversation(t *testing.T, r http.Handler) chatModel.State {
	t.Helper()
	resp := doJSON(r, http.MethodPost, "/conversations", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var state chatModel.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestCreateAndGetConversation(t *testing.T) {
	r, _ := setupRouter(t, upperTranslator{})
	state := createConversation(t, r)

	if state.SourceLang != language.English || state.TargetLang != language.Hindi {
		t.Fatalf("unexpected languages %s -> %s", state.SourceLang, state.TargetLang)
	}
	if len(state.Messages) != 1 || state.Messages[0].ID != chatservice.WelcomeMessageID {
		t.Fatalf("expected welcome message, got %+v", state.Messages)
	}

	resp := doJSON(r, http.MethodGet, "/conversations/"+state.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodGet, "/conversations", "")
	var summaries []chatModel.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != state.ID || summaries[0].UserID != asha.ID {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}

func TestGetUnknownConversation(t *testing.T) {
	r, _ := setupRouter(t, upperTranslator{})

	resp := doJSON(r, http.MethodGet, "/conversations/missing", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessage(t *testing.T) {
	r, _ := setupRouter(t, upperTranslator{})
	state := createConversation(t, r)

	resp := doJSON(r, http.MethodPost, "/conversations/"+state.ID+"/messages", `{"text":"hello"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var msg chatModel.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Sender != chatModel.SenderUser || msg.TranslatedText != "HELLO" || msg.IsTranslating {
		t.Fatalf("unexpected message %+v", msg)
	}

	resp = doJSON(r, http.MethodPost, "/conversations/"+state.ID+"/messages", `{"text":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("blank text: expected 400, got %d", resp.Code)
	}
}

func TestSendMessageTranslationFailureStillCreated(t *testing.T) {
	r, _ := setupRouter(t, upperTranslator{fail: true})
	state := createConversation(t, r)

	resp := doJSON(r, http.MethodPost, "/conversations/"+state.ID+"/messages", `{"text":"hello"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var msg chatModel.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.TranslatedText != chatModel.ErrorText {
		t.Fatalf("expected error text, got %q", msg.TranslatedText)
	}
}

func TestSetLanguagesRejectsPartiallyInvalidPayload(t *testing.T) {
	r, chatSvc := setupRouter(t, upperTranslator{})
	state := createConversation(t, r)
	conv, err := chatSvc.GetConversation(context.Background(), asha.ID, state.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}

	var events []chatModel.Event
	unsubscribe := conv.Subscribe(func(e chatModel.Event) { events = append(events, e) })
	defer unsubscribe()

	resp := doJSON(r, http.MethodPut, "/conversations/"+state.ID+"/languages", `{"sourceLang":"Marathi","targetLang":"Klingon"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	after := conv.Snapshot()
	if after.SourceLang != language.English || after.TargetLang != language.Hindi {
		t.Fatalf("languages changed on rejected request: %s -> %s", after.SourceLang, after.TargetLang)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestLanguageControls(t *testing.T) {
	r, _ := setupRouter(t, upperTranslator{})
	state := createConversation(t, r)
	base := "/conversations/" + state.ID

	resp := doJSON(r, http.MethodPut, base+"/languages", `{"targetLang":"Kannada"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("set target: expected 200, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPut, base+"/languages", `{"sourceLang":"Klingon"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown language: expected 400, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPut, base+"/languages", `{}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty payload: expected 400, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, base+"/swap", "")
	var swapped chatModel.State
	if err := json.NewDecoder(resp.Body).Decode(&swapped); err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if swapped.SourceLang != language.Kannada || swapped.TargetLang != language.English {
		t.Fatalf("unexpected swap result %s -> %s", swapped.SourceLang, swapped.TargetLang)
	}

	resp = doJSON(r, http.MethodPut, base+"/transliteration", `{"enabled":true}`)
	var translit chatModel.State
	if err := json.NewDecoder(resp.Body).Decode(&translit); err != nil {
		t.Fatalf("decode transliteration: %v", err)
	}
	if !translit.UseTransliteration || translit.TargetLang != language.Roman {
		t.Fatalf("expected sentinel target, got %+v", translit)
	}

	resp = doJSON(r, http.MethodPost, base+"/swap", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("swap in transliteration: expected 409, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPut, base+"/transliteration", `{}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing enabled: expected 400, got %d", resp.Code)
	}
}

func TestCloseConversation(t *testing.T) {
	r, chatSvc := setupRouter(t, upperTranslator{})
	state := createConversation(t, r)

	resp := doJSON(r, http.MethodDelete, "/conversations/"+state.ID, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	if _, err := chatSvc.GetConversation(context.Background(), asha.ID, state.ID); !errors.Is(err, chatservice.ErrConversationNotFound) {
		t.Fatalf("expected conversation removed, got %v", err)
	}

	resp = doJSON(r, http.MethodDelete, "/conversations/"+state.ID, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("second close: expected 404, got %d", resp.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		chatservice.ErrConversationNotFound:  http.StatusNotFound,
		chatservice.ErrEmptyMessage:          http.StatusBadRequest,
		chatservice.ErrUnknownLanguage:       http.StatusBadRequest,
		chatservice.ErrSwapInTransliteration: http.StatusConflict,
		chatservice.ErrConversationClosed:    http.StatusConflict,
		errors.New("boom"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Fatalf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
