package domain

// Mode es el modo de guía que resulta del clasificador (A, B o C).
type Mode string

const (
	ModeEmotionalHolding     Mode = "emotional_holding"     // Mode A
	ModeRelationalActivation Mode = "relational_activation" // Mode B
	ModeReflectiveStability  Mode = "reflective_stability"  // Mode C
)

// Label devuelve el nombre visible del modo.
func (m Mode) Label() string {
	switch m {
	case ModeEmotionalHolding:
		return "Emotional Holding Mode"
	case ModeRelationalActivation:
		return "Relational Activation Mode"
	case ModeReflectiveStability:
		return "Reflective Stability Mode"
	}
	return ""
}

// RiskLevel son los niveles de riesgo de crisis, de menor a mayor.
type RiskLevel string

const (
	RiskNone RiskLevel = "none"
	RiskR1   RiskLevel = "r1" // ideación pasiva, sin plan
	RiskR2   RiskLevel = "r2" // ideación recurrente, desesperanza fuerte
	RiskR3   RiskLevel = "r3" // plan activo o en curso
)

// Severity ordena los niveles; valores desconocidos cuentan como RiskNone.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskR1:
		return 1
	case RiskR2:
		return 2
	case RiskR3:
		return 3
	}
	return 0
}

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskNone, RiskR1, RiskR2, RiskR3:
		return true
	}
	return false
}
