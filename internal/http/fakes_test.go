package http

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"rmi/internal/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

type memContactRepo struct {
	mu       sync.Mutex
	contacts []domain.Contact
}

func (m *memContactRepo) Create(_ context.Context, c domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, c)
	return nil
}

func (m *memContactRepo) Update(_ context.Context, c domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == c.ID && m.contacts[i].UserID == c.UserID {
			m.contacts[i] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memContactRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == id && m.contacts[i].UserID == userID {
			m.contacts = append(m.contacts[:i], m.contacts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memContactRepo) DeleteAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.Contact
	for _, c := range m.contacts {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	m.contacts = kept
	return nil
}

func (m *memContactRepo) ListByUser(_ context.Context, userID string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Contact{}
	for _, c := range m.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memChatRepo struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (m *memChatRepo) Create(_ context.Context, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memChatRepo) ListByUser(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ChatMessage{}
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memChatRepo) LastUserMessage(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	msgs, _ := m.ListByUser(ctx, userID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser() {
			msg := msgs[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (m *memChatRepo) DeleteAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID != userID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

type memStateRepo struct {
	mu     sync.Mutex
	states map[string]domain.UserState
}

func (m *memStateRepo) Get(_ context.Context, userID string) (domain.UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return domain.UserState{}, pgx.ErrNoRows
	}
	return st, nil
}

func (m *memStateRepo) Create(_ context.Context, st domain.UserState) error {
	return m.Update(context.Background(), st)
}

func (m *memStateRepo) Update(_ context.Context, st domain.UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string]domain.UserState)
	}
	m.states[st.UserID] = st
	return nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.InteractionEvent
}

func (m *memEventRepo) Append(_ context.Context, e domain.InteractionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEventRepo) Totals(_ context.Context, userID string) (domain.InteractionTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t domain.InteractionTotals
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		switch e.Kind {
		case domain.EventReset:
			t = domain.InteractionTotals{}
		case domain.EventAISession:
			t.AISessions++
		case domain.EventRealEvent:
			t.RealEvents++
		}
	}
	return t, nil
}

type memFeedbackRepo struct {
	items []domain.Feedback
}

func (m *memFeedbackRepo) Create(_ context.Context, fb domain.Feedback) error {
	m.items = append(m.items, fb)
	return nil
}
