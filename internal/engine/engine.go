package engine

import (
	"time"

	"rmi/internal/domain"
)

// Engine agrupa el pipeline de señales y decisión sobre un Lexicon y un reloj.
// No guarda estado mutable: puede usarse desde varias goroutines.
type Engine struct {
	lexicon *Lexicon
	now     func() time.Time
}

type Option func(*Engine)

// WithClock reemplaza el reloj usado para la recencia de contactos.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New crea un Engine. Un lexicon nil usa la tabla embebida.
func New(lexicon *Lexicon, opts ...Option) *Engine {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	e := &Engine{lexicon: lexicon, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Lexicon() *Lexicon {
	return e.lexicon
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Input es la foto inmutable sobre la que se evalúa el pipeline.
type Input struct {
	Messages   []domain.ChatMessage
	Contacts   []domain.Contact
	EUser      int
	AISessions int
	RealEvents int
}

// Assessment es el resultado derivado; nunca se persiste por separado.
type Assessment struct {
	ESys        int              `json:"e_sys"`
	EFinal      int              `json:"e_final"`
	AIC         int              `json:"aic"`
	RII         int              `json:"rii"`
	Mode        domain.Mode      `json:"mode"`
	Risk        domain.RiskLevel `json:"risk"`
	Features    EmotionFeatures  `json:"features"`
	Suggestions []ScoredContact  `json:"suggestions"`
}

// Evaluate corre el pipeline completo: pre-screen, emoción, balance, modo y ranking.
func (e *Engine) Evaluate(in Input) Assessment {
	var a Assessment
	a.Risk = e.lexicon.PreScreenCrisis(LatestUserText(in.Messages))
	a.ESys, a.Features = e.lexicon.emotionSignal(in.Messages)
	a.EFinal = ComputeBlendedEmotion(in.EUser, a.ESys)
	a.AIC, a.RII = ComputeBalance(in.AISessions, in.RealEvents)
	a.Mode = ClassifyMode(a.EFinal, a.AIC)

	scored := ScoreContacts(in.Contacts, in.Messages, a.EFinal, e.now())
	if len(scored) > SuggestionLimit {
		scored = scored[:SuggestionLimit]
	}
	a.Suggestions = scored
	return a
}

func (e *Engine) ComputeEmotionSignal(messages []domain.ChatMessage) int {
	return e.lexicon.ComputeEmotionSignal(messages)
}

func (e *Engine) PreScreenCrisis(text string) domain.RiskLevel {
	return e.lexicon.PreScreenCrisis(text)
}

func (e *Engine) RankContacts(contacts []domain.Contact, messages []domain.ChatMessage, eFinal int) []domain.Contact {
	return RankContacts(contacts, messages, eFinal, e.now())
}

// ComputeEmotionSignal usa la tabla embebida.
func ComputeEmotionSignal(messages []domain.ChatMessage) int {
	return DefaultLexicon().ComputeEmotionSignal(messages)
}

// PreScreenCrisis usa la tabla embebida.
func PreScreenCrisis(text string) domain.RiskLevel {
	return DefaultLexicon().PreScreenCrisis(text)
}
