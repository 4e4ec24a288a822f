package domain

// DialogueMode es el modo conversacional elegido por el servicio de generación.
type DialogueMode string

const (
	DialogueHolding   DialogueMode = "holding"
	DialogueClarify   DialogueMode = "clarify"
	DialogueAction    DialogueMode = "action"
	DialogueMediation DialogueMode = "mediation"
	DialogueBoundary  DialogueMode = "boundary"
)

func (m DialogueMode) Valid() bool {
	switch m {
	case DialogueHolding, DialogueClarify, DialogueAction, DialogueMediation, DialogueBoundary:
		return true
	}
	return false
}

// LonelinessStructure clasifica la fuente de la soledad detectada.
type LonelinessStructure string

const (
	StructureNoResource  LonelinessStructure = "l1" // nadie a quien contactar
	StructureHardToStart LonelinessStructure = "l2" // tiene gente pero no puede iniciar
	StructureExclusion   LonelinessStructure = "l3" // exclusión de grupo
	StructureTemporal    LonelinessStructure = "l4" // situacional
	StructureUnknown     LonelinessStructure = "unknown"
)

func (s LonelinessStructure) Valid() bool {
	switch s {
	case StructureNoResource, StructureHardToStart, StructureExclusion, StructureTemporal, StructureUnknown:
		return true
	}
	return false
}

// Acciones de botón reconocidas por el cliente.
const (
	ActionContinue      = "continue"
	ActionSelectContact = "select_contact"
	ActionWriteScript   = "write_script"
	ActionMicroAction   = "micro_action"
	ActionEndChat       = "end_chat"
	ActionContactNow    = "contact_now"
	ActionTomorrow      = "tomorrow"
)

type ActionButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type ContactScripts struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

type RecommendedContact struct {
	Name       string         `json:"name"`
	Reason     string         `json:"reason"`
	Scripts    ContactScripts `json:"scripts"`
	LowBarrier string         `json:"lowBarrier"`
}

// AIResponse es el payload estructurado que acompaña cada respuesta generada.
type AIResponse struct {
	Mode                DialogueMode         `json:"mode"`
	ResponseText        string               `json:"response_text"`
	EmotionLevel        int                  `json:"emotion_level"` // 0-3
	StructureType       LonelinessStructure  `json:"structure_type"`
	DependencyRisk      bool                 `json:"dependency_risk"`
	Buttons             []ActionButton       `json:"buttons"`
	RecommendedContacts []RecommendedContact `json:"recommended_contacts"`
	BoundaryFlags       bool                 `json:"boundary_flags"`
	SafetyFlags         RiskLevel            `json:"safety_flags"`
	ExplainCard         string               `json:"explain_card,omitempty"`
}
