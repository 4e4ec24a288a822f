package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/engine"
	"rmi/internal/llm"
)

type chatFixture struct {
	svc      *ChatService
	messages *fakeChatRepo
	contacts *fakeContactRepo
	events   *fakeEventRepo
	state    *StateService
	client   *llm.MockClient
	clock    *time.Time
}

func newChatFixture(response string) *chatFixture {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	f := &chatFixture{
		messages: &fakeChatRepo{},
		contacts: &fakeContactRepo{},
		events:   &fakeEventRepo{},
		client:   &llm.MockClient{Response: response},
		clock:    &now,
	}
	eng := engine.New(nil, engine.WithClock(func() time.Time { return *f.clock }))
	f.state = NewStateService(zap.NewNop(), newFakeStateRepo(), f.events, nil, 0)
	network := NewNetworkService(zap.NewNop(), f.contacts, f.state, nil, time.Hour)
	replies := NewReplyService(zap.NewNop(), f.client, eng, nil, time.Second)
	f.svc = NewChatService(zap.NewNop(), f.messages, network, f.state, replies, eng, nil)
	return f
}

func (f *chatFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestChatService_SendMessage(t *testing.T) {
	f := newChatFixture(`{"mode":"clarify","response_text":"Tell me more.","buttons":[{"label":"Continue","action":"continue"}]}`)
	ctx := context.Background()

	res, err := f.svc.SendMessage(ctx, "u1", "  I had a rough day  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.UserMessage.Text != "I had a rough day" || res.UserMessage.Sender != domain.SenderUser {
		t.Fatalf("unexpected user message: %+v", res.UserMessage)
	}
	if res.AIMessage.Text != "Tell me more." || res.AIMessage.Response == nil || res.AIMessage.Response.Mode != domain.DialogueClarify {
		t.Fatalf("unexpected ai message: %+v", res.AIMessage)
	}
	if res.AIMessage.Timestamp <= res.UserMessage.Timestamp {
		t.Fatalf("ai message must be stored after the user message")
	}
	if !res.NewSession {
		t.Fatalf("first message must open a session")
	}
	if len(f.messages.messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(f.messages.messages))
	}
	// Una sesión de IA y ningún evento real: AIC 100.
	if res.Assessment.AIC != 100 || res.Assessment.RII != 0 {
		t.Fatalf("unexpected balance: %+v", res.Assessment)
	}
}

func TestChatService_SessionRule(t *testing.T) {
	f := newChatFixture(`{"response_text":"ok"}`)
	ctx := context.Background()

	if _, err := f.svc.SendMessage(ctx, "u1", "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	f.advance(30 * time.Minute)
	res, err := f.svc.SendMessage(ctx, "u1", "two")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.NewSession {
		t.Fatalf("a gap of exactly 30 minutes stays in the same session")
	}
	f.advance(30*time.Minute + time.Millisecond)
	res, err = f.svc.SendMessage(ctx, "u1", "three")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.NewSession {
		t.Fatalf("a gap above 30 minutes opens a new session")
	}

	st, _ := f.state.Get(ctx, "u1")
	if st.AISessionCount != 2 {
		t.Fatalf("expected 2 ai sessions, got %d", st.AISessionCount)
	}
}

func TestChatService_FailedSaveOpensNoSession(t *testing.T) {
	f := newChatFixture(`{"response_text":"ok"}`)
	ctx := context.Background()

	f.messages.createErr = errors.New("db down")
	if _, err := f.svc.SendMessage(ctx, "u1", "hello"); err == nil {
		t.Fatalf("expected save error")
	}
	st, _ := f.state.Get(ctx, "u1")
	if st.AISessionCount != 0 {
		t.Fatalf("unsaved message must not count a session, got %d", st.AISessionCount)
	}

	f.messages.createErr = nil
	res, err := f.svc.SendMessage(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.NewSession {
		t.Fatalf("retry must still open the session")
	}
	st, _ = f.state.Get(ctx, "u1")
	if st.AISessionCount != 1 {
		t.Fatalf("expected 1 ai session, got %d", st.AISessionCount)
	}
}

func TestChatService_RejectsEmpty(t *testing.T) {
	f := newChatFixture(`{"response_text":"ok"}`)
	if _, err := f.svc.SendMessage(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(f.client.Requests()) != 0 {
		t.Fatalf("model must not be called for empty text")
	}
}

func TestChatService_UsesNetworkAndSettings(t *testing.T) {
	f := newChatFixture(`{"mode":"mediation","response_text":"Maybe reach out.","recommended_contacts":[{"name":"Ana","reason":"close"},{"name":"Ghost","reason":"?"}]}`)
	ctx := context.Background()
	f.contacts.contacts = []domain.Contact{
		{ID: "c1", UserID: "u1", Name: "Ana", Ring: domain.RingInner, Group: domain.GroupFriends, LastInteraction: domain.UnknownInteraction},
	}

	res, err := f.svc.SendMessage(ctx, "u1", "I miss talking to Ana")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	recs := res.AIMessage.Response.RecommendedContacts
	if len(recs) != 1 || recs[0].Name != "Ana" {
		t.Fatalf("expected only network contacts, got %+v", recs)
	}
	if len(res.Assessment.Suggestions) != 1 || res.Assessment.Suggestions[0].Mention != 1 {
		t.Fatalf("expected mention factor for Ana, got %+v", res.Assessment.Suggestions)
	}
}

func TestChatService_FallbackStillStored(t *testing.T) {
	f := newChatFixture("")
	f.client.Err = errors.New("timeout")

	res, err := f.svc.SendMessage(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.AIMessage.Text != technicalIssueText {
		t.Fatalf("expected technical issue reply, got %q", res.AIMessage.Text)
	}
}

func TestChatService_HistoryAndClear(t *testing.T) {
	f := newChatFixture(`{"response_text":"ok"}`)
	ctx := context.Background()
	_, _ = f.svc.SendMessage(ctx, "u1", "hi")

	history, err := f.svc.History(ctx, "u1")
	if err != nil || len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d err=%v", len(history), err)
	}
	if err := f.svc.ClearHistory(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	history, _ = f.svc.History(ctx, "u1")
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}
