package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/engine"
	"rmi/internal/metrics"
	"rmi/internal/repository"
)

var ErrEmptyMessage = errors.New("message text is empty")

const maxMessageRunes = 4000

// ContactLister entrega la red del usuario.
type ContactLister interface {
	ListContacts(ctx context.Context, userID string) ([]domain.Contact, error)
}

// ChatState es la parte del estado que necesita la conversación.
type ChatState interface {
	Get(ctx context.Context, userID string) (domain.UserState, error)
	RecordAISession(ctx context.Context, userID string) error
}

// ReplyGenerator produce la respuesta estructurada para una conversación.
type ReplyGenerator interface {
	Generate(ctx context.Context, in ReplyInput) domain.AIResponse
}

// SendResult agrupa los dos mensajes persistidos y la evaluación usada para responder.
type SendResult struct {
	UserMessage domain.ChatMessage `json:"user_message"`
	AIMessage   domain.ChatMessage `json:"ai_message"`
	Assessment  engine.Assessment  `json:"assessment"`
	NewSession  bool               `json:"new_session"`
}

// ChatService orquesta el envío de mensajes; los envíos de un mismo usuario se serializan.
type ChatService struct {
	logger   *zap.Logger
	messages repository.ChatMessageRepository
	contacts ContactLister
	state    ChatState
	replies  ReplyGenerator
	engine   *engine.Engine
	metrics  *metrics.Metrics
	locks    *userLocks
	now      func() time.Time
}

func NewChatService(
	logger *zap.Logger,
	messages repository.ChatMessageRepository,
	contacts ContactLister,
	state ChatState,
	replies ReplyGenerator,
	eng *engine.Engine,
	m *metrics.Metrics,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eng == nil {
		eng = engine.New(nil)
	}
	return &ChatService{
		logger:   logger,
		messages: messages,
		contacts: contacts,
		state:    state,
		replies:  replies,
		engine:   eng,
		metrics:  m,
		locks:    newUserLocks(),
		now:      eng.Now,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, userID, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if r := []rune(text); len(r) > maxMessageRunes {
		text = string(r[:maxMessageRunes])
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	nowMillis := s.now().UnixMilli()
	prev, err := s.messages.LastUserMessage(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("last user message: %w", err)
	}
	newSession := engine.StartsNewSession(prev, nowMillis)

	userMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    domain.SenderUser,
		Text:      text,
		Timestamp: nowMillis,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return SendResult{}, fmt.Errorf("save user message: %w", err)
	}
	s.metrics.RecordMessage(string(domain.SenderUser))
	// La sesión cuenta solo con el mensaje ya guardado; un reintento no la ve como nueva.
	if newSession {
		if err := s.state.RecordAISession(ctx, userID); err != nil {
			s.logger.Error("record ai session failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	history, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("list messages: %w", err)
	}
	contacts, err := s.contacts.ListContacts(ctx, userID)
	if err != nil {
		s.logger.Warn("network unavailable, replying without contacts", zap.String("user_id", userID), zap.Error(err))
		contacts = []domain.Contact{}
	}
	st, err := s.state.Get(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("get state: %w", err)
	}

	assessment := s.engine.Evaluate(engine.Input{
		Messages:   history,
		Contacts:   contacts,
		EUser:      st.EUser,
		AISessions: st.AISessionCount,
		RealEvents: st.RealEventCount,
	})
	s.metrics.RecordMode(string(assessment.Mode))

	resp := s.replies.Generate(ctx, ReplyInput{
		Messages:   history,
		Contacts:   contacts,
		Assessment: assessment,
		AISessions: st.AISessionCount,
		Settings:   st.Settings,
	})

	aiMillis := s.now().UnixMilli()
	if aiMillis <= nowMillis {
		aiMillis = nowMillis + 1
	}
	aiMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    domain.SenderAI,
		Text:      resp.ResponseText,
		Timestamp: aiMillis,
		Response:  &resp,
	}
	if err := s.messages.Create(ctx, aiMsg); err != nil {
		return SendResult{}, fmt.Errorf("save ai message: %w", err)
	}
	s.metrics.RecordMessage(string(domain.SenderAI))

	s.logger.Debug("message handled",
		zap.String("user_id", userID),
		zap.String("mode", string(assessment.Mode)),
		zap.Int("e_final", assessment.EFinal),
		zap.String("safety", string(resp.SafetyFlags)),
		zap.Bool("new_session", newSession))

	return SendResult{
		UserMessage: userMsg,
		AIMessage:   aiMsg,
		Assessment:  assessment,
		NewSession:  newSession,
	}, nil
}

func (s *ChatService) History(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	msgs, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	if err := s.messages.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
