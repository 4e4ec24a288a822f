package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/metrics"
	"rmi/internal/repository"
)

var (
	ErrInvalidContact  = errors.New("invalid contact")
	ErrContactNotFound = errors.New("contact not found")
)

const defaultContactName = "Unknown"

// NetworkHooks recibe los efectos laterales de la red sobre el estado del usuario.
type NetworkHooks interface {
	CompleteOnboarding(ctx context.Context, userID string) error
	RecordRealEvent(ctx context.Context, userID, source string) error
}

// ContactInput son los datos de alta; los vacíos toman valores por defecto.
type ContactInput struct {
	Name            string               `json:"name"`
	Ring            domain.Ring          `json:"ring"`
	Group           domain.Group         `json:"group"`
	SupportTypes    []domain.SupportType `json:"support_types"`
	LastInteraction string               `json:"last_interaction"`
	Notes           string               `json:"notes"`
}

// ContactPatch actualiza solo los campos presentes.
type ContactPatch struct {
	Name            *string               `json:"name"`
	Ring            *domain.Ring          `json:"ring"`
	Group           *domain.Group         `json:"group"`
	SupportTypes    *[]domain.SupportType `json:"support_types"`
	LastInteraction *string               `json:"last_interaction"`
	Notes           *string               `json:"notes"`
}

// NetworkService gestiona la red relacional del usuario.
type NetworkService struct {
	logger   *zap.Logger
	contacts repository.ContactRepository
	hooks    NetworkHooks
	metrics  *metrics.Metrics
	cache    *cache.Cache
	cacheMu  sync.Mutex // leer-copiar-escribir sobre la lista cacheada
	now      func() time.Time
}

func NewNetworkService(
	logger *zap.Logger,
	contacts repository.ContactRepository,
	hooks NetworkHooks,
	m *metrics.Metrics,
	cacheTTL time.Duration,
) *NetworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkService{
		logger:   logger,
		contacts: contacts,
		hooks:    hooks,
		metrics:  m,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
		now:      time.Now,
	}
}

func (s *NetworkService) AddContact(ctx context.Context, userID string, in ContactInput) (domain.Contact, error) {
	now := s.now().UTC()
	c := domain.Contact{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            strings.TrimSpace(in.Name),
		Ring:            in.Ring,
		Group:           in.Group,
		SupportTypes:    in.SupportTypes,
		LastInteraction: strings.TrimSpace(in.LastInteraction),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyContactDefaults(&c)
	if err := validateContact(c); err != nil {
		return domain.Contact{}, err
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return domain.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	s.updateCached(userID, func(list []domain.Contact) []domain.Contact { return append(list, c) })
	return c, nil
}

// Onboard da de alta la red inicial y marca el onboarding como completo.
func (s *NetworkService) Onboard(ctx context.Context, userID string, inputs []ContactInput) ([]domain.Contact, error) {
	created := make([]domain.Contact, 0, len(inputs))
	for _, in := range inputs {
		c, err := s.AddContact(ctx, userID, in)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	if s.hooks != nil {
		if err := s.hooks.CompleteOnboarding(ctx, userID); err != nil {
			return created, fmt.Errorf("complete onboarding: %w", err)
		}
	}
	return created, nil
}

func (s *NetworkService) UpdateContact(ctx context.Context, userID, id string, patch ContactPatch) (domain.Contact, error) {
	return s.modify(ctx, userID, id, func(c *domain.Contact) {
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Ring != nil {
			c.Ring = *patch.Ring
		}
		if patch.Group != nil {
			c.Group = *patch.Group
		}
		if patch.SupportTypes != nil {
			c.SupportTypes = *patch.SupportTypes
		}
		if patch.LastInteraction != nil {
			c.LastInteraction = strings.TrimSpace(*patch.LastInteraction)
		}
		if patch.Notes != nil {
			c.Notes = strings.TrimSpace(*patch.Notes)
		}
	})
}

func (s *NetworkService) MoveContact(ctx context.Context, userID, id string, ring domain.Ring) (domain.Contact, error) {
	if !ring.Valid() {
		return domain.Contact{}, ErrInvalidContact
	}
	return s.modify(ctx, userID, id, func(c *domain.Contact) { c.Ring = ring })
}

// AdvanceRing acerca el contacto un anillo: Outer -> Middle -> Inner.
func (s *NetworkService) AdvanceRing(ctx context.Context, userID, id string) (domain.Contact, error) {
	return s.modify(ctx, userID, id, func(c *domain.Contact) { c.Ring = c.Ring.Next() })
}

// CompleteContactFlow marca el contacto de hoy y registra un evento real.
func (s *NetworkService) CompleteContactFlow(ctx context.Context, userID, id string) (domain.Contact, error) {
	today := s.now().UTC().Format(dateLayout)
	c, err := s.modify(ctx, userID, id, func(c *domain.Contact) { c.LastInteraction = today })
	if err != nil {
		return domain.Contact{}, err
	}
	if s.hooks != nil {
		if err := s.hooks.RecordRealEvent(ctx, userID, domain.SourceContactFlow); err != nil {
			return c, fmt.Errorf("record real event: %w", err)
		}
	}
	return c, nil
}

func (s *NetworkService) DeleteContact(ctx context.Context, userID, id string) error {
	if err := s.contacts.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrContactNotFound
		}
		return fmt.Errorf("delete contact: %w", err)
	}
	s.updateCached(userID, func(list []domain.Contact) []domain.Contact {
		out := list[:0]
		for _, c := range list {
			if c.ID != id {
				out = append(out, c)
			}
		}
		return out
	})
	return nil
}

func (s *NetworkService) ClearContacts(ctx context.Context, userID string) error {
	if err := s.contacts.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("clear contacts: %w", err)
	}
	s.setCached(userID, []domain.Contact{})
	return nil
}

// ListContacts devuelve la red; si el store falla usa la última lista conocida.
func (s *NetworkService) ListContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	contacts, err := s.contacts.ListByUser(ctx, userID)
	if err == nil {
		s.setCached(userID, contacts)
		return contacts, nil
	}
	if cached, ok := s.cached(userID); ok {
		s.logger.Warn("contact store unavailable, serving cached network",
			zap.String("user_id", userID), zap.Error(err))
		s.metrics.RecordContactCacheFallback()
		return cached, nil
	}
	return nil, fmt.Errorf("list contacts: %w", err)
}

func (s *NetworkService) modify(ctx context.Context, userID, id string, fn func(*domain.Contact)) (domain.Contact, error) {
	contacts, err := s.contacts.ListByUser(ctx, userID)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("list contacts: %w", err)
	}
	var found *domain.Contact
	for i := range contacts {
		if contacts[i].ID == id {
			found = &contacts[i]
			break
		}
	}
	if found == nil {
		return domain.Contact{}, ErrContactNotFound
	}
	c := *found
	fn(&c)
	applyContactDefaults(&c)
	if err := validateContact(c); err != nil {
		return domain.Contact{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.contacts.Update(ctx, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, ErrContactNotFound
		}
		return domain.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	*found = c
	s.setCached(userID, contacts)
	return c, nil
}

// cached devuelve una copia de la última lista conocida.
func (s *NetworkService) cached(userID string) ([]domain.Contact, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil, false
	}
	return append([]domain.Contact(nil), v.([]domain.Contact)...), true
}

func (s *NetworkService) setCached(userID string, contacts []domain.Contact) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Set(userID, append([]domain.Contact(nil), contacts...), cache.DefaultExpiration)
}

// updateCached aplica una escritura exitosa a la lista cacheada; sin lista previa no hace nada.
func (s *NetworkService) updateCached(userID string, fn func([]domain.Contact) []domain.Contact) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	v, ok := s.cache.Get(userID)
	if !ok {
		return
	}
	list := append([]domain.Contact(nil), v.([]domain.Contact)...)
	s.cache.Set(userID, fn(list), cache.DefaultExpiration)
}

const dateLayout = "2006-01-02"

func applyContactDefaults(c *domain.Contact) {
	if c.Name == "" {
		c.Name = defaultContactName
	}
	if c.Ring == "" {
		c.Ring = domain.RingOuter
	}
	if c.Group == "" {
		c.Group = domain.GroupOther
	}
	if c.SupportTypes == nil {
		c.SupportTypes = []domain.SupportType{}
	}
	if c.LastInteraction == "" {
		c.LastInteraction = domain.UnknownInteraction
	}
}

func validateContact(c domain.Contact) error {
	if !c.Ring.Valid() {
		return fmt.Errorf("%w: ring %q", ErrInvalidContact, c.Ring)
	}
	if !c.Group.Valid() {
		return fmt.Errorf("%w: group %q", ErrInvalidContact, c.Group)
	}
	for _, st := range c.SupportTypes {
		if !st.Valid() {
			return fmt.Errorf("%w: support type %q", ErrInvalidContact, st)
		}
	}
	if c.LastInteraction != domain.UnknownInteraction && !validInteractionDate(c.LastInteraction) {
		return fmt.Errorf("%w: last interaction %q", ErrInvalidContact, c.LastInteraction)
	}
	return nil
}

func validInteractionDate(v string) bool {
	if _, err := time.Parse(dateLayout, v); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, v)
	return err == nil
}
