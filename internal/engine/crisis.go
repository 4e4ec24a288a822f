package engine

import (
	"strings"

	"rmi/internal/domain"
)

// PreScreenCrisis clasifica un texto por niveles de palabras clave: tier 3 primero, luego tier 2.
func (l *Lexicon) PreScreenCrisis(text string) domain.RiskLevel {
	lower := strings.ToLower(text)
	if l.ContainsAny(lower, ClassCrisisTier3) {
		return domain.RiskR3
	}
	if l.ContainsAny(lower, ClassCrisisTier2) {
		return domain.RiskR2
	}
	return domain.RiskNone
}

// MergeRisk combina el pre-screen local con el flag remoto. El local es un piso:
// el remoto solo puede subir el nivel, nunca bajarlo.
func MergeRisk(local, remote domain.RiskLevel) domain.RiskLevel {
	if !remote.Valid() {
		remote = domain.RiskNone
	}
	if remote.Severity() > local.Severity() {
		return remote
	}
	if !local.Valid() {
		return domain.RiskNone
	}
	return local
}

// LatestUserText devuelve el texto del último mensaje del usuario.
func LatestUserText(messages []domain.ChatMessage) string {
	if m := LastUserMessage(messages); m != nil {
		return m.Text
	}
	return ""
}
