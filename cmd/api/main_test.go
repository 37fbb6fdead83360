package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/zhouzirui/lingualink/backend/internal/config"
	"github.com/zhouzirui/lingualink/backend/internal/model/user"
	"github.com/zhouzirui/lingualink/backend/internal/service/chat"
	"github.com/zhouzirui/lingualink/backend/internal/service/translate"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not stop")
	}
}

func TestNewTranslatorWithoutCredentials(t *testing.T) {
	tr := newTranslator(context.Background(), config.TranslatorConfig{Provider: config.ProviderArk})
	if tr != translate.Unavailable {
		t.Fatalf("expected Unavailable translator, got %T", tr)
	}
}

func TestNewTranslatorOpenAI(t *testing.T) {
	tr := newTranslator(context.Background(), config.TranslatorConfig{
		Provider: config.ProviderOpenAI,
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
	})
	if _, ok := tr.(*translate.OpenAIClient); !ok {
		t.Fatalf("expected OpenAI client, got %T", tr)
	}
}

func TestDrainConversationsClosesLiveConversations(t *testing.T) {
	svc, err := chat.NewService(translate.Unavailable, chat.Config{BotReplyDelay: time.Hour})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	conv, err := svc.CreateConversation(context.Background(), user.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	if err := drainConversations(svc, time.Second); err != nil {
		t.Fatalf("drainConversations err: %v", err)
	}

	select {
	case <-conv.Done():
	default:
		t.Fatal("conversation still open after drain")
	}
}
