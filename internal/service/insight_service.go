package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/engine"
	"rmi/internal/metrics"
	"rmi/internal/repository"
)

// Insight es la foto de métricas que ve el usuario.
type Insight struct {
	EUser          int                    `json:"e_user"`
	ESys           int                    `json:"e_sys"`
	EFinal         int                    `json:"e_final"`
	AIC            int                    `json:"aic"`
	RII            int                    `json:"rii"`
	Mode           domain.Mode            `json:"mode"`
	ModeLabel      string                 `json:"mode_label"`
	Suggestions    []engine.ScoredContact `json:"suggestions"`
	AISessionCount int                    `json:"ai_session_count"`
	RealEventCount int                    `json:"real_event_count"`
}

type InsightService struct {
	logger   *zap.Logger
	messages repository.ChatMessageRepository
	contacts ContactLister
	state    ChatState
	engine   *engine.Engine
	metrics  *metrics.Metrics
}

func NewInsightService(
	logger *zap.Logger,
	messages repository.ChatMessageRepository,
	contacts ContactLister,
	state ChatState,
	eng *engine.Engine,
	m *metrics.Metrics,
) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eng == nil {
		eng = engine.New(nil)
	}
	return &InsightService{logger: logger, messages: messages, contacts: contacts, state: state, engine: eng, metrics: m}
}

func (s *InsightService) Snapshot(ctx context.Context, userID string) (Insight, error) {
	history, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return Insight{}, fmt.Errorf("list messages: %w", err)
	}
	contacts, err := s.contacts.ListContacts(ctx, userID)
	if err != nil {
		return Insight{}, err
	}
	st, err := s.state.Get(ctx, userID)
	if err != nil {
		return Insight{}, fmt.Errorf("get state: %w", err)
	}

	a := s.engine.Evaluate(engine.Input{
		Messages:   history,
		Contacts:   contacts,
		EUser:      st.EUser,
		AISessions: st.AISessionCount,
		RealEvents: st.RealEventCount,
	})
	s.metrics.RecordMode(string(a.Mode))

	suggestions := a.Suggestions
	if suggestions == nil {
		suggestions = []engine.ScoredContact{}
	}
	return Insight{
		EUser:          st.EUser,
		ESys:           a.ESys,
		EFinal:         a.EFinal,
		AIC:            a.AIC,
		RII:            a.RII,
		Mode:           a.Mode,
		ModeLabel:      a.Mode.Label(),
		Suggestions:    suggestions,
		AISessionCount: st.AISessionCount,
		RealEventCount: st.RealEventCount,
	}, nil
}
