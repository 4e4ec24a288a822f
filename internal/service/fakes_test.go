package service

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"rmi/internal/domain"
)

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts []domain.Contact
	listErr  error
	writeErr error
}

func (f *fakeContactRepo) Create(_ context.Context, c domain.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.contacts = append(f.contacts, c)
	return nil
}

func (f *fakeContactRepo) Update(_ context.Context, c domain.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.contacts {
		if f.contacts[i].ID == c.ID && f.contacts[i].UserID == c.UserID {
			f.contacts[i] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeContactRepo) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.contacts {
		if f.contacts[i].ID == id && f.contacts[i].UserID == userID {
			f.contacts = append(f.contacts[:i], f.contacts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeContactRepo) DeleteAll(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	kept := f.contacts[:0]
	for _, c := range f.contacts {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	f.contacts = kept
	return nil
}

func (f *fakeContactRepo) ListByUser(_ context.Context, userID string) ([]domain.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []domain.Contact{}
	for _, c := range f.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeChatRepo struct {
	mu        sync.Mutex
	messages  []domain.ChatMessage
	createErr error
}

func (f *fakeChatRepo) Create(_ context.Context, m domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeChatRepo) ListByUser(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ChatMessage{}
	for _, m := range f.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (f *fakeChatRepo) LastUserMessage(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	msgs, _ := f.ListByUser(ctx, userID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser() {
			m := msgs[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeChatRepo) DeleteAll(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

type fakeStateRepo struct {
	mu      sync.Mutex
	states  map[string]domain.UserState
	updates int
	err     error

	// gate, si no es nil, retiene cada Update hasta cerrarse; started avisa que uno empezó.
	gate    chan struct{}
	started chan struct{}
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]domain.UserState{}}
}

func (f *fakeStateRepo) Get(_ context.Context, userID string) (domain.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.UserState{}, f.err
	}
	st, ok := f.states[userID]
	if !ok {
		return domain.UserState{}, pgx.ErrNoRows
	}
	return st, nil
}

func (f *fakeStateRepo) Create(_ context.Context, st domain.UserState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[st.UserID]; !ok {
		f.states[st.UserID] = st
	}
	return nil
}

func (f *fakeStateRepo) Update(_ context.Context, st domain.UserState) error {
	if f.gate != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates++
	f.states[st.UserID] = st
	return nil
}

func (f *fakeStateRepo) Updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

func (f *fakeStateRepo) Stored(userID string) (domain.UserState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[userID]
	return st, ok
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.InteractionEvent
	err    error
}

func (f *fakeEventRepo) Append(_ context.Context, e domain.InteractionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) Totals(_ context.Context, userID string) (domain.InteractionTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var t domain.InteractionTotals
	for _, e := range f.events {
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

func (f *fakeEventRepo) Kinds(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, e.Kind)
		}
	}
	return out
}

type fakeFeedbackRepo struct {
	items []domain.Feedback
}

func (f *fakeFeedbackRepo) Create(_ context.Context, fb domain.Feedback) error {
	f.items = append(f.items, fb)
	return nil
}
