package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"rmi/internal/domain"
	"rmi/internal/llm"
	"rmi/internal/repository"
)

const (
	contextMaxMessages = 20
	contextMaxChars    = 200
)

// ContextService define contrato para recuperar contexto conversacional.
type ContextService interface {
	GetContext(ctx context.Context, userID string) (string, error)
}

// BasicContextService obtiene los últimos mensajes y los formatea como texto plano.
type BasicContextService struct {
	messageRepo repository.ChatMessageRepository
}

func NewBasicContextService(messageRepo repository.ChatMessageRepository) *BasicContextService {
	return &BasicContextService{messageRepo: messageRepo}
}

func (s *BasicContextService) GetContext(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil
	}
	messages, err := s.messageRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	return ConversationSummary(messages), nil
}

// ConversationSummary formatea los últimos mensajes como "User:" / "RMI:", truncando cada texto.
func ConversationSummary(messages []domain.ChatMessage) string {
	recent := tail(messages, contextMaxMessages)
	if len(recent) == 0 {
		return ""
	}
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		role := "RMI"
		if m.IsUser() {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, truncateRunes(m.Text, contextMaxChars)))
	}
	return strings.Join(lines, "\n")
}

// ConversationTurns arma los turnos para el LLM; las respuestas previas viajan como su payload JSON.
func ConversationTurns(messages []domain.ChatMessage) []llm.Turn {
	recent := tail(messages, contextMaxMessages)
	turns := make([]llm.Turn, 0, len(recent))
	for _, m := range recent {
		if m.IsUser() {
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: m.Text})
			continue
		}
		content := m.Text
		if m.Response != nil {
			if b, err := json.Marshal(m.Response); err == nil {
				content = string(b)
			}
		}
		turns = append(turns, llm.Turn{Role: llm.RoleAssistant, Content: content})
	}
	return turns
}

func tail(messages []domain.ChatMessage, n int) []domain.ChatMessage {
	if len(messages) > n {
		return messages[len(messages)-n:]
	}
	return messages
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
