package engine

import "rmi/internal/domain"

const (
	HoldingThreshold    = 75
	ActivationThreshold = 65
)

// ClassifyMode: la intensidad emocional tiene prioridad sobre el balance de interacción.
func ClassifyMode(eFinal, aic int) domain.Mode {
	switch {
	case eFinal >= HoldingThreshold:
		return domain.ModeEmotionalHolding
	case aic >= ActivationThreshold:
		return domain.ModeRelationalActivation
	default:
		return domain.ModeReflectiveStability
	}
}
