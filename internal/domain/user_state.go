package domain

import "time"

// DefaultEmotion es el valor inicial de E_user y el E_sys neutral.
const DefaultEmotion = 65

// Settings reemplaza la bolsa dinámica de preferencias por campos explícitos.
type Settings struct {
	HighlightNames             bool `json:"highlight_names"`
	ConfirmBeforeAdd           bool `json:"confirm_before_add"`
	ShowSupportStats           bool `json:"show_support_stats"`
	ShowInteractionMarkers     bool `json:"show_interaction_markers"`
	AllowContactRecommendation bool `json:"allow_contact_recommendation"`
	AllowScriptGeneration      bool `json:"allow_script_generation"`
	AllowCrisisResources       bool `json:"allow_crisis_resources"`
}

// DefaultSettings activa todo por defecto.
func DefaultSettings() Settings {
	return Settings{
		HighlightNames:             true,
		ConfirmBeforeAdd:           true,
		ShowSupportStats:           true,
		ShowInteractionMarkers:     true,
		AllowContactRecommendation: true,
		AllowScriptGeneration:      true,
		AllowCrisisResources:       true,
	}
}

// SettingsPatch es una actualización parcial; los nil no se tocan.
type SettingsPatch struct {
	HighlightNames             *bool `json:"highlight_names"`
	ConfirmBeforeAdd           *bool `json:"confirm_before_add"`
	ShowSupportStats           *bool `json:"show_support_stats"`
	ShowInteractionMarkers     *bool `json:"show_interaction_markers"`
	AllowContactRecommendation *bool `json:"allow_contact_recommendation"`
	AllowScriptGeneration      *bool `json:"allow_script_generation"`
	AllowCrisisResources       *bool `json:"allow_crisis_resources"`
}

// Apply devuelve una copia de s con los campos presentes en p.
func (p SettingsPatch) Apply(s Settings) Settings {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.HighlightNames, p.HighlightNames)
	set(&s.ConfirmBeforeAdd, p.ConfirmBeforeAdd)
	set(&s.ShowSupportStats, p.ShowSupportStats)
	set(&s.ShowInteractionMarkers, p.ShowInteractionMarkers)
	set(&s.AllowContactRecommendation, p.AllowContactRecommendation)
	set(&s.AllowScriptGeneration, p.AllowScriptGeneration)
	set(&s.AllowCrisisResources, p.AllowCrisisResources)
	return s
}

// UserState es el estado persistido por usuario. Los contadores se derivan del log de eventos.
type UserState struct {
	UserID             string    `json:"-"`
	EUser              int       `json:"e_user"`
	AISessionCount     int       `json:"ai_session_count"`
	RealEventCount     int       `json:"real_event_count"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	Settings           Settings  `json:"settings"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultUserState es el estado de un usuario recién creado o reseteado.
func DefaultUserState(userID string) UserState {
	return UserState{
		UserID:   userID,
		EUser:    DefaultEmotion,
		Settings: DefaultSettings(),
	}
}

// Tipos de evento del log de interacciones.
const (
	EventAISession = "ai_session"
	EventRealEvent = "real_event"
	EventReset     = "reset"
)

// Orígenes de un evento real.
const (
	SourceContactFlow  = "contact_flow"
	SourceResourceOpen = "resource_open"
	SourceChat         = "chat"
)

// InteractionEvent es una entrada del log append-only de interacciones.
type InteractionEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InteractionTotals son los contadores vigentes desde el último reset.
type InteractionTotals struct {
	AISessions int
	RealEvents int
}
