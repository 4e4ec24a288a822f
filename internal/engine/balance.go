package engine

import "rmi/internal/domain"

// SessionGap es el silencio (ms) a partir del cual un mensaje abre una nueva sesión de IA.
const SessionGap int64 = 30 * 60 * 1000

// ComputeBalance devuelve (AIC, RII). Sin datos devuelve (0, 100).
// RII se deriva por resta para que AIC+RII sea exactamente 100.
func ComputeBalance(aiSessions, realEvents int) (aic, rii int) {
	if aiSessions < 0 {
		aiSessions = 0
	}
	if realEvents < 0 {
		realEvents = 0
	}
	total := aiSessions + realEvents
	if total == 0 {
		return 0, 100
	}
	// round(ai/total*100) en aritmética entera, redondeo half-up.
	aic = (200*aiSessions + total) / (2 * total)
	return aic, 100 - aic
}

// StartsNewSession indica si un mensaje enviado en nowMillis abre una sesión nueva
// respecto al mensaje de usuario previo (nil si no existe).
func StartsNewSession(prev *domain.ChatMessage, nowMillis int64) bool {
	if prev == nil {
		return true
	}
	return nowMillis-prev.Timestamp > SessionGap
}

// LastUserMessage devuelve el último mensaje del usuario, o nil.
func LastUserMessage(messages []domain.ChatMessage) *domain.ChatMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsUser() {
			m := messages[i]
			return &m
		}
	}
	return nil
}

// CurrentSessionStart devuelve el timestamp del primer mensaje de usuario de la sesión
// en curso, o 0 si no hay mensajes de usuario.
func CurrentSessionStart(messages []domain.ChatMessage) int64 {
	var start int64
	var prev int64
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if !m.IsUser() {
			continue
		}
		if start != 0 && prev-m.Timestamp > SessionGap {
			break
		}
		start = m.Timestamp
		prev = m.Timestamp
	}
	return start
}
