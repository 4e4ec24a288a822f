package engine

import (
	"testing"

	"rmi/internal/domain"
)

func userMsgs(texts ...string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(texts))
	for i, text := range texts {
		out = append(out, domain.ChatMessage{Sender: domain.SenderUser, Text: text, Timestamp: int64(i) * 1000})
	}
	return out
}

func TestComputeEmotionSignal_EmptyWindowIsNeutral(t *testing.T) {
	if got := ComputeEmotionSignal(nil); got != 65 {
		t.Fatalf("expected 65 for empty history, got %d", got)
	}
	aiOnly := []domain.ChatMessage{{Sender: domain.SenderAI, Text: "HELLO!!! lonely lonely lonely"}}
	if got := ComputeEmotionSignal(aiOnly); got != 65 {
		t.Fatalf("expected 65 when there are no user messages, got %d", got)
	}
}

func TestComputeEmotionSignal_Cases(t *testing.T) {
	cases := []struct {
		name     string
		messages []domain.ChatMessage
		want     int
	}{
		// arousal 2/5, fixation 1/3
		{"arousal keywords", userMsgs("I feel hopeless and lonely"), 18},
		// shouting + "!!" saturan intensidad; fixation 1/3
		{"intensity markers", userMsgs("WHY!!"), 33},
		// helplessness 1/1, shouting 1/1, fixation 1/3
		{"uppercase helplessness", userMsgs("I CAN'T DO THIS"), 58},
		{"calm short text", userMsgs("ok", "fine"), 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeEmotionSignal(tc.messages); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

// La fijación usa la frecuencia máxima real del token repetido (no queda fija en cero).
func TestComputeEmotionSignal_FixationTracksTrueMaximum(t *testing.T) {
	got := ComputeEmotionSignal(userMsgs("really really really"))
	if got != 25 {
		t.Fatalf("expected saturated fixation (25), got %d", got)
	}

	_, f := DefaultLexicon().emotionSignal(userMsgs("maybe", "maybe later"))
	if f.Fixation < 0.66 || f.Fixation > 0.67 {
		t.Fatalf("expected fixation 2/3, got %v", f.Fixation)
	}
}

func TestComputeEmotionSignal_OnlyLastEightUserMessages(t *testing.T) {
	msgs := userMsgs("desperate desperate desperate!!!", "HOPELESS!!!")
	for i := 0; i < EmotionWindow; i++ {
		msgs = append(msgs, domain.ChatMessage{Sender: domain.SenderAI, Text: "PANIC!!!"})
		msgs = append(msgs, domain.ChatMessage{Sender: domain.SenderUser, Text: "ok"})
	}
	if got := ComputeEmotionSignal(msgs); got != 0 {
		t.Fatalf("expected older messages to fall out of the window, got %d", got)
	}
}

func TestUserWindow_Chronological(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Sender: domain.SenderUser, Text: "a"},
		{Sender: domain.SenderAI, Text: "x"},
		{Sender: domain.SenderUser, Text: "b"},
		{Sender: domain.SenderUser, Text: "c"},
	}
	w := UserWindow(msgs, 2)
	if len(w) != 2 || w[0].Text != "b" || w[1].Text != "c" {
		t.Fatalf("unexpected window: %+v", w)
	}
}

func TestIsShouting(t *testing.T) {
	cases := map[string]bool{
		"HELP ME": true,
		"OK!":     false,
		"Help me": false,
		"我好累啊我好累": false,
		"!!!!":    false,
	}
	for text, want := range cases {
		if got := isShouting(text); got != want {
			t.Fatalf("isShouting(%q) = %v, want %v", text, got, want)
		}
	}
}
