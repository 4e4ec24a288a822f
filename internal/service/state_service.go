package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/metrics"
	"rmi/internal/repository"
)

var (
	ErrInvalidEmotion     = errors.New("e_user must be between 0 and 100")
	ErrInvalidEventSource = errors.New("invalid real event source")
)

const stateFlushTimeout = 5 * time.Second

// StateService mantiene el estado por usuario con escrituras diferidas (una por intervalo).
type StateService struct {
	logger   *zap.Logger
	states   repository.UserStateRepository
	events   repository.InteractionEventRepository
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time

	// locks serializa lectura→cambio→escritura por usuario, incluido el flush.
	locks *userLocks

	mu       sync.Mutex
	pending  map[string]domain.UserState
	inflight map[string]domain.UserState // en escritura; visible hasta que Update termina
	timers   map[string]*time.Timer
	closed   bool
}

func NewStateService(
	logger *zap.Logger,
	states repository.UserStateRepository,
	events repository.InteractionEventRepository,
	m *metrics.Metrics,
	interval time.Duration,
) *StateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateService{
		logger:   logger,
		states:   states,
		events:   events,
		metrics:  m,
		interval: interval,
		now:      time.Now,
		locks:    newUserLocks(),
		pending:  make(map[string]domain.UserState),
		inflight: make(map[string]domain.UserState),
		timers:   make(map[string]*time.Timer),
	}
}

// Get devuelve el estado vigente, creando el de defecto si no existe.
func (s *StateService) Get(ctx context.Context, userID string) (domain.UserState, error) {
	st, err := s.current(ctx, userID)
	if err != nil {
		return domain.UserState{}, err
	}
	totals, err := s.events.Totals(ctx, userID)
	if err != nil {
		return domain.UserState{}, fmt.Errorf("count interactions: %w", err)
	}
	st.AISessionCount = totals.AISessions
	st.RealEventCount = totals.RealEvents
	return st, nil
}

func (s *StateService) SetEmotion(ctx context.Context, userID string, eUser int) (domain.UserState, error) {
	if eUser < 0 || eUser > 100 {
		return domain.UserState{}, ErrInvalidEmotion
	}
	return s.mutate(ctx, userID, func(st *domain.UserState) { st.EUser = eUser })
}

func (s *StateService) SetSettings(ctx context.Context, userID string, patch domain.SettingsPatch) (domain.UserState, error) {
	return s.mutate(ctx, userID, func(st *domain.UserState) { st.Settings = patch.Apply(st.Settings) })
}

func (s *StateService) CompleteOnboarding(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(st *domain.UserState) { st.OnboardingComplete = true })
	return err
}

func (s *StateService) RecordAISession(ctx context.Context, userID string) error {
	return s.appendEvent(ctx, userID, domain.EventAISession, domain.SourceChat)
}

// RecordRealEvent registra una interacción real iniciada desde la red o desde un recurso.
func (s *StateService) RecordRealEvent(ctx context.Context, userID, source string) error {
	switch source {
	case domain.SourceContactFlow, domain.SourceResourceOpen:
	default:
		return ErrInvalidEventSource
	}
	return s.appendEvent(ctx, userID, domain.EventRealEvent, source)
}

// ResetCounters agrega un marcador de reset; los eventos previos dejan de contar.
func (s *StateService) ResetCounters(ctx context.Context, userID string) error {
	return s.appendEvent(ctx, userID, domain.EventReset, "")
}

// ResetState descarta cambios pendientes y vuelve el estado y los contadores a sus valores iniciales.
func (s *StateService) ResetState(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserNotFound
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	s.mu.Lock()
	delete(s.pending, userID)
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
	s.mu.Unlock()

	st := domain.DefaultUserState(userID)
	st.UpdatedAt = s.now().UTC()
	if err := s.states.Update(ctx, st); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return s.ResetCounters(ctx, userID)
}

// Flush escribe todos los cambios pendientes.
func (s *StateService) Flush(ctx context.Context) error {
	s.mu.Lock()
	users := make([]string, 0, len(s.pending))
	for id := range s.pending {
		users = append(users, id)
	}
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range users {
		if err := s.flushOne(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close drena lo pendiente; a partir de ahí las escrituras son inmediatas.
func (s *StateService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *StateService) mutate(ctx context.Context, userID string, fn func(*domain.UserState)) (domain.UserState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserState{}, ErrUserNotFound
	}
	unlock := s.locks.lock(userID)
	st, err := s.current(ctx, userID)
	if err != nil {
		unlock()
		return domain.UserState{}, err
	}
	fn(&st)
	st.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	if s.closed || s.interval <= 0 {
		s.mu.Unlock()
		err := s.write(ctx, st)
		unlock()
		if err != nil {
			return domain.UserState{}, err
		}
		return s.Get(ctx, userID)
	}
	s.pending[userID] = st
	if _, ok := s.timers[userID]; !ok {
		s.timers[userID] = time.AfterFunc(s.interval, func() { s.flushTimer(userID) })
	}
	s.mu.Unlock()
	unlock()
	return s.Get(ctx, userID)
}

// current lee el estado persistido sin contadores, priorizando lo pendiente.
func (s *StateService) current(ctx context.Context, userID string) (domain.UserState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserState{}, ErrUserNotFound
	}
	s.mu.Lock()
	st, ok := s.pending[userID]
	if !ok {
		st, ok = s.inflight[userID]
	}
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	st, err := s.states.Get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.UserState{}, fmt.Errorf("get state: %w", err)
	}
	st = domain.DefaultUserState(userID)
	st.UpdatedAt = s.now().UTC()
	if err := s.states.Create(ctx, st); err != nil {
		return domain.UserState{}, fmt.Errorf("create state: %w", err)
	}
	return st, nil
}

func (s *StateService) flushTimer(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), stateFlushTimeout)
	defer cancel()
	if err := s.flushOne(ctx, userID); err != nil {
		s.logger.Error("state flush failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// flushOne escribe el pendiente del usuario. Mientras Update corre, el estado
// queda en inflight para que Get no lea la fila vieja.
func (s *StateService) flushOne(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	s.mu.Lock()
	st, ok := s.pending[userID]
	delete(s.pending, userID)
	if t, exists := s.timers[userID]; exists {
		t.Stop()
		delete(s.timers, userID)
	}
	if ok {
		s.inflight[userID] = st
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	err := s.write(ctx, st)

	s.mu.Lock()
	delete(s.inflight, userID)
	if err != nil {
		// No se pierde el cambio: vuelve a pendiente salvo que haya uno más nuevo.
		if _, newer := s.pending[userID]; !newer {
			s.pending[userID] = st
		}
	}
	s.mu.Unlock()
	return err
}

func (s *StateService) write(ctx context.Context, st domain.UserState) error {
	if err := s.states.Update(ctx, st); err != nil {
		s.metrics.RecordStateFlush("error")
		return fmt.Errorf("update state: %w", err)
	}
	s.metrics.RecordStateFlush("ok")
	return nil
}

func (s *StateService) appendEvent(ctx context.Context, userID, kind, source string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserNotFound
	}
	event := domain.InteractionEvent{
		UserID:    userID,
		Kind:      kind,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", kind, err)
	}
	return nil
}
