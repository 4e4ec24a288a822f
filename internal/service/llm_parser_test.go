package service

import (
	"testing"

	"rmi/internal/domain"
)

func TestReplyParser_FullPayload(t *testing.T) {
	raw := "```json\n" + `{
		"mode": "mediation",
		"response_text": "Maybe reach out to Lena?",
		"emotion_level": 2,
		"structure_type": "l2",
		"dependency_risk": false,
		"buttons": [
			{"label": "Write to Lena", "action": "write_script"},
			{"label": "Later", "action": "tomorrow"},
			{"label": "Stop", "action": "end_chat"},
			{"label": "Extra", "action": "continue"}
		],
		"recommended_contacts": [
			{"name": " Lena ", "reason": "close friend", "scripts": {"short": "hey", "long": "hey, thinking of you"}, "lowBarrier": "send a meme"}
		],
		"boundary_flags": false,
		"safety_flags": "none",
		"explain_card": "Lena is in your inner ring"
	}` + "\n```"

	got, ok := DefaultReplyParser.Parse(raw)
	if !ok {
		t.Fatalf("expected structured parse")
	}
	if got.Mode != domain.DialogueMediation || got.StructureType != domain.StructureHardToStart || got.EmotionLevel != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Buttons) != 3 {
		t.Fatalf("expected buttons capped at 3, got %d", len(got.Buttons))
	}
	if len(got.RecommendedContacts) != 1 || got.RecommendedContacts[0].Name != "Lena" || got.RecommendedContacts[0].LowBarrier != "send a meme" {
		t.Fatalf("unexpected contacts: %+v", got.RecommendedContacts)
	}
}

func TestReplyParser_Defaults(t *testing.T) {
	got, ok := DefaultReplyParser.Parse(`Sure! {"response_text": "hi there", "mode": "weird", "safety_flags": "R9", "buttons": [{"label": "Go", "action": "fly"}]}`)
	if !ok {
		t.Fatalf("expected structured parse from embedded object")
	}
	if got.Mode != domain.DialogueAction {
		t.Fatalf("expected default action mode, got %s", got.Mode)
	}
	if got.EmotionLevel != 1 || got.StructureType != domain.StructureUnknown || got.SafetyFlags != domain.RiskNone {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if len(got.Buttons) != 1 || got.Buttons[0].Action != domain.ActionContinue {
		t.Fatalf("expected unknown action to become continue, got %+v", got.Buttons)
	}
	if got.RecommendedContacts == nil {
		t.Fatalf("expected non-nil contacts slice")
	}
}

func TestReplyParser_PlainTextFallback(t *testing.T) {
	got, ok := DefaultReplyParser.Parse("I hear you. That sounds hard.")
	if ok {
		t.Fatalf("expected plain-text fallback")
	}
	if got.ResponseText != "I hear you. That sounds hard." {
		t.Fatalf("unexpected text %q", got.ResponseText)
	}
	if len(got.Buttons) != 1 || got.Buttons[0].Label != "Continue" {
		t.Fatalf("expected Continue button, got %+v", got.Buttons)
	}
}

func TestReplyParser_TruncatedJSONUsesRegex(t *testing.T) {
	got, ok := DefaultReplyParser.Parse(`{"mode":"holding","response_text":"Breathe with me.\nSlowly.","buttons":[`)
	if ok {
		t.Fatalf("expected fallback for truncated JSON")
	}
	if got.ResponseText != "Breathe with me.\nSlowly." {
		t.Fatalf("unexpected text %q", got.ResponseText)
	}
}

func TestSanitizeFallbackText_HidesBareJSON(t *testing.T) {
	if got := SanitizeFallbackText(`{"mode":"action"}`); got != "" {
		t.Fatalf("expected bare JSON to be hidden, got %q", got)
	}
	if got := SanitizeFallbackText("  plain  "); got != "plain" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestReplyParser_EmotionLevelClamped(t *testing.T) {
	got, _ := DefaultReplyParser.Parse(`{"response_text":"x","emotion_level":7.4}`)
	if got.EmotionLevel != 3 {
		t.Fatalf("expected clamp to 3, got %d", got.EmotionLevel)
	}
}
