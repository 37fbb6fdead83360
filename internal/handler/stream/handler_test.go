package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualink/backend/internal/model/chat"
	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	authService "github.com/zhouzirui/lingualink/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, req translate.Request) (string, error) {
	return "t:" + req.Text, nil
}

func (echoTranslator) Transliterate(_ context.Context, req translate.Request) (string, error) {
	return "r:" + req.Text, nil
}

var owner = user.User{ID: "u-1", DisplayName: "Ravi"}

func setupServer(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()

	chatSvc, err := chatservice.NewService(echoTranslator{}, chatservice.Config{BotReplyDelay: time.Hour})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authService.WithUser(req.Context(), owner)))
		})
	})
	New(chatSvc, WithHeartbeat(time.Hour)).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

type frame struct {
	event string
	data  string
}

func readFrame(t *testing.T, reader *bufio.Reader) frame {
	t.Helper()

	var f frame
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if f.event != "" {
				return f
			}
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventStreamDeliversSnapshotAndUpdates(t *testing.T) {
	srv, chatSvc := setupServer(t)
	ctx := context.Background()

	conv, err := chatSvc.CreateConversation(ctx, owner)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	resp, err := http.Get(srv.URL + "/conversations/" + conv.ID() + "/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	first := readFrame(t, reader)
	if first.event != string(chat.EventStateChanged) {
		t.Fatalf("expected snapshot first, got %q", first.event)
	}
	var snapshot chat.Event
	if err := json.Unmarshal([]byte(first.data), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.State == nil || len(snapshot.State.Messages) != 1 {
		t.Fatalf("expected welcome-only snapshot, got %+v", snapshot.State)
	}

	if _, err := conv.SendMessage(ctx, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	want := []chat.EventType{
		chat.EventMessageAppended,
		chat.EventStateChanged,
		chat.EventMessagePatched,
		chat.EventStateChanged,
	}
	for _, eventType := range want {
		f := readFrame(t, reader)
		if f.event != string(eventType) {
			t.Fatalf("expected %s, got %s", eventType, f.event)
		}
	}

	if err := chatSvc.CloseConversation(ctx, owner.ID, conv.ID()); err != nil {
		t.Fatalf("CloseConversation: %v", err)
	}
	if f := readFrame(t, reader); f.event != EventClosed {
		t.Fatalf("expected closed frame, got %q", f.event)
	}
}

func TestEventStreamUnknownConversation(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/conversations/missing/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
