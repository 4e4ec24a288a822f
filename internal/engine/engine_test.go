package engine

import (
	"testing"
	"time"

	"rmi/internal/domain"
)

func TestEvaluate_NoHistoryAISkewed(t *testing.T) {
	eng := New(nil, WithClock(func() time.Time { return rankNow }))
	a := eng.Evaluate(Input{EUser: 50, AISessions: 8, RealEvents: 2})

	if a.ESys != 65 || a.EFinal != 55 {
		t.Fatalf("expected e_sys 65 / e_final 55, got %d / %d", a.ESys, a.EFinal)
	}
	if a.AIC != 80 || a.RII != 20 {
		t.Fatalf("expected (80,20), got (%d,%d)", a.AIC, a.RII)
	}
	if a.Mode != domain.ModeRelationalActivation {
		t.Fatalf("expected relational activation, got %s", a.Mode)
	}
	if a.Risk != domain.RiskNone {
		t.Fatalf("expected no risk, got %s", a.Risk)
	}
	if len(a.Suggestions) != 0 {
		t.Fatalf("expected no suggestions without contacts")
	}
}

func TestEvaluate_PreScreenUsesLatestUserMessage(t *testing.T) {
	eng := New(nil, WithClock(func() time.Time { return rankNow }))
	msgs := []domain.ChatMessage{
		{Sender: domain.SenderUser, Text: "I want to die", Timestamp: 1},
		{Sender: domain.SenderAI, Text: "I'm here with you", Timestamp: 2},
		{Sender: domain.SenderUser, Text: "thanks, a bit better now", Timestamp: 3},
	}
	a := eng.Evaluate(Input{Messages: msgs, EUser: 65})
	if a.Risk != domain.RiskNone {
		t.Fatalf("expected pre-screen on the latest user message only, got %s", a.Risk)
	}

	msgs = append(msgs, domain.ChatMessage{Sender: domain.SenderUser, Text: "no, I can't go on", Timestamp: 4})
	a = eng.Evaluate(Input{Messages: msgs, EUser: 65})
	if a.Risk != domain.RiskR2 {
		t.Fatalf("expected r2, got %s", a.Risk)
	}
}

func TestEvaluate_SuggestionsUseInjectedClock(t *testing.T) {
	eng := New(nil, WithClock(func() time.Time { return rankNow }))
	contacts := []domain.Contact{
		{ID: "recent", Name: "Ana", Ring: domain.RingInner, LastInteraction: daysAgo(2)},
		{ID: "reconnect", Name: "Bo", Ring: domain.RingInner, LastInteraction: daysAgo(20)},
	}
	a := eng.Evaluate(Input{Contacts: contacts, EUser: 65})
	if len(a.Suggestions) != 2 || a.Suggestions[0].Contact.ID != "reconnect" {
		t.Fatalf("expected reconnect window contact first, got %+v", a.Suggestions)
	}
	if a.Suggestions[0].Days != 20 {
		t.Fatalf("expected 20 days, got %d", a.Suggestions[0].Days)
	}

	ranked := eng.RankContacts(contacts, nil, 65)
	if ranked[0].ID != "reconnect" {
		t.Fatalf("expected RankContacts to agree with Evaluate")
	}
}
