package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"rmi/internal/domain"
)

// SuggestionLimit es la cantidad máxima de contactos sugeridos.
const SuggestionLimit = 3

const (
	weightDistance = 0.4
	weightRecency  = 0.3
	weightSupport  = 0.2
	weightMention  = 0.1
)

// ScoredContact es un contacto con su RAS y los cuatro factores que lo componen.
type ScoredContact struct {
	Contact  domain.Contact `json:"contact"`
	Score    float64        `json:"score"`
	Distance float64        `json:"distance"`
	Recency  float64        `json:"recency"`
	Support  float64        `json:"support"`
	Mention  float64        `json:"mention"`
	// Days es -1 cuando la fecha es desconocida o inválida.
	Days int `json:"days"`
}

// ScoreContacts puntúa todos los contactos y los ordena por RAS descendente.
// Los empates conservan el orden de entrada.
func ScoreContacts(contacts []domain.Contact, messages []domain.ChatMessage, eFinal int, now time.Time) []ScoredContact {
	if len(contacts) == 0 {
		return []ScoredContact{}
	}

	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(strings.ToLower(m.Text))
		sb.WriteByte('\n')
	}
	history := sb.String()

	out := make([]ScoredContact, 0, len(contacts))
	for _, c := range contacts {
		days := DaysSince(c.LastInteraction, now)
		sc := ScoredContact{
			Contact:  c,
			Distance: distanceFactor(c.Ring),
			Recency:  recencyFactor(days),
			Support:  supportFactor(c, eFinal),
			Mention:  0.5,
			Days:     days,
		}
		if c.MentionedIn(history) {
			sc.Mention = 1.0
		}
		sc.Score = weightDistance*sc.Distance + weightRecency*sc.Recency +
			weightSupport*sc.Support + weightMention*sc.Mention
		out = append(out, sc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// RankContacts devuelve los mejores contactos (como mucho SuggestionLimit).
func RankContacts(contacts []domain.Contact, messages []domain.ChatMessage, eFinal int, now time.Time) []domain.Contact {
	scored := ScoreContacts(contacts, messages, eFinal, now)
	if len(scored) > SuggestionLimit {
		scored = scored[:SuggestionLimit]
	}
	out := make([]domain.Contact, 0, len(scored))
	for _, sc := range scored {
		out = append(out, sc.Contact)
	}
	return out
}

// DaysSince devuelve los días completos (techo) entre now y la fecha ISO dada,
// o -1 si la fecha es "Unknown" o no se puede parsear.
func DaysSince(lastInteraction string, now time.Time) int {
	s := strings.TrimSpace(lastInteraction)
	if s == "" || s == domain.UnknownInteraction {
		return -1
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return -1
		}
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func distanceFactor(r domain.Ring) float64 {
	switch r {
	case domain.RingInner:
		return 1.0
	case domain.RingMiddle:
		return 0.6
	}
	return 0.3
}

func recencyFactor(days int) float64 {
	switch {
	case days < 0:
		return 0.5
	case days <= 7:
		return 0.1
	case days <= 30:
		return 1.0
	case days <= 90:
		return 0.7
	}
	return 0.5
}

func supportFactor(c domain.Contact, eFinal int) float64 {
	switch {
	case eFinal >= 60 && eFinal <= 74:
		if c.HasSupport(domain.SupportEmotional) {
			return 1.0
		}
		return 0.5
	case eFinal < 40:
		if c.HasSupport(domain.SupportDaily) {
			return 1.0
		}
		return 0.5
	}
	return 0.7
}
