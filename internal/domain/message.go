package domain

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage es un turno de la conversación. Se agrega y nunca se modifica.
type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"-"`
	Sender    Sender      `json:"sender"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"` // milisegundos desde epoch
	Response  *AIResponse `json:"structured_response,omitempty"`
}

// IsUser indica si el mensaje fue escrito por el usuario.
func (m ChatMessage) IsUser() bool {
	return m.Sender == SenderUser
}
