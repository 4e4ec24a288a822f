package domain

import (
	"strings"
	"time"
)

// Ring es la categoría de cercanía relacional de un contacto.
type Ring string

const (
	RingInner  Ring = "Inner"
	RingMiddle Ring = "Middle"
	RingOuter  Ring = "Outer"
)

// Valid indica si el ring es uno de los tres anillos conocidos.
func (r Ring) Valid() bool {
	switch r {
	case RingInner, RingMiddle, RingOuter:
		return true
	}
	return false
}

// Next devuelve el anillo inmediatamente más cercano. Inner se queda en Inner.
func (r Ring) Next() Ring {
	switch r {
	case RingOuter:
		return RingMiddle
	case RingMiddle, RingInner:
		return RingInner
	}
	return RingOuter
}

type Group string

const (
	GroupFamily     Group = "Family"
	GroupFriends    Group = "Friends"
	GroupColleagues Group = "Colleagues"
	GroupCommunity  Group = "Community"
	GroupOther      Group = "Other"
)

func (g Group) Valid() bool {
	switch g {
	case GroupFamily, GroupFriends, GroupColleagues, GroupCommunity, GroupOther:
		return true
	}
	return false
}

type SupportType string

const (
	SupportEmotional    SupportType = "Emotional"
	SupportPractical    SupportType = "Practical"
	SupportDaily        SupportType = "Daily"
	SupportProfessional SupportType = "Professional"
	SupportOther        SupportType = "Other"
)

func (s SupportType) Valid() bool {
	switch s {
	case SupportEmotional, SupportPractical, SupportDaily, SupportProfessional, SupportOther:
		return true
	}
	return false
}

// UnknownInteraction es el centinela de LastInteraction cuando no hay fecha conocida.
const UnknownInteraction = "Unknown"

// Contact es una persona de la red relacional del usuario.
type Contact struct {
	ID              string        `json:"id"`
	UserID          string        `json:"-"`
	Name            string        `json:"name"`
	Ring            Ring          `json:"ring"`
	Group           Group         `json:"group"`
	SupportTypes    []SupportType `json:"support_types"`
	LastInteraction string        `json:"last_interaction"` // fecha ISO o "Unknown"
	Notes           string        `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// HasSupport indica si el contacto está etiquetado con el tipo de apoyo dado.
func (c Contact) HasSupport(t SupportType) bool {
	for _, s := range c.SupportTypes {
		if s == t {
			return true
		}
	}
	return false
}

// MentionedIn indica si el nombre aparece (sin distinguir mayúsculas) dentro de un texto ya en minúsculas.
func (c Contact) MentionedIn(lowerText string) bool {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if name == "" {
		return false
	}
	return strings.Contains(lowerText, name)
}
