package service

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"rmi/internal/domain"
)

// ReplyParser centraliza la limpieza y el parseo del payload estructurado que devuelve el LLM.
type ReplyParser struct{}

// DefaultReplyParser permite uso directo sin instanciar.
var DefaultReplyParser = ReplyParser{}

const maxReplyButtons = 3

// rawReply acepta campos ausentes para poder aplicar defaults.
type rawReply struct {
	Mode                string                      `json:"mode"`
	ResponseText        string                      `json:"response_text"`
	EmotionLevel        *float64                    `json:"emotion_level"`
	StructureType       string                      `json:"structure_type"`
	DependencyRisk      *bool                       `json:"dependency_risk"`
	Buttons             []domain.ActionButton       `json:"buttons"`
	RecommendedContacts []domain.RecommendedContact `json:"recommended_contacts"`
	BoundaryFlags       *bool                       `json:"boundary_flags"`
	SafetyFlags         string                      `json:"safety_flags"`
	ExplainCard         string                      `json:"explain_card"`
}

// Parse intenta extraer el payload. ok=false significa que no hubo JSON utilizable y
// la respuesta es el texto plano envuelto en el payload por defecto.
func (ReplyParser) Parse(raw string) (domain.AIResponse, bool) {
	cleaned := CleanLLMJSONResponse(raw)

	tryUnmarshal := func(candidate string) (domain.AIResponse, bool) {
		if strings.TrimSpace(candidate) == "" {
			return domain.AIResponse{}, false
		}
		var tmp rawReply
		if err := json.Unmarshal([]byte(candidate), &tmp); err != nil {
			return domain.AIResponse{}, false
		}
		text := strings.TrimSpace(UnescapeMaybeDoubleEscaped(tmp.ResponseText))
		if text == "" {
			return domain.AIResponse{}, false
		}
		tmp.ResponseText = text
		return normalizeReply(tmp), true
	}

	candidates := append([]string{cleaned}, jsonObjects(cleaned)...)
	for _, candidate := range candidates {
		if resp, ok := tryUnmarshal(candidate); ok {
			return resp, true
		}
	}

	if text, ok := ExtractResponseTextByRegex(cleaned); ok {
		return plainReply(text), false
	}
	return plainReply(SanitizeFallbackText(raw)), false
}

func normalizeReply(r rawReply) domain.AIResponse {
	out := domain.AIResponse{
		Mode:           domain.DialogueMode(strings.ToLower(strings.TrimSpace(r.Mode))),
		ResponseText:   r.ResponseText,
		EmotionLevel:   1,
		StructureType:  domain.LonelinessStructure(strings.ToLower(strings.TrimSpace(r.StructureType))),
		DependencyRisk: r.DependencyRisk != nil && *r.DependencyRisk,
		BoundaryFlags:  r.BoundaryFlags != nil && *r.BoundaryFlags,
		SafetyFlags:    domain.RiskLevel(strings.ToLower(strings.TrimSpace(r.SafetyFlags))),
		ExplainCard:    strings.TrimSpace(r.ExplainCard),
	}
	if !out.Mode.Valid() {
		out.Mode = domain.DialogueAction
	}
	if r.EmotionLevel != nil && !math.IsNaN(*r.EmotionLevel) {
		out.EmotionLevel = int(math.Max(0, math.Min(3, math.Round(*r.EmotionLevel))))
	}
	if !out.StructureType.Valid() {
		out.StructureType = domain.StructureUnknown
	}
	if !out.SafetyFlags.Valid() {
		out.SafetyFlags = domain.RiskNone
	}

	out.Buttons = make([]domain.ActionButton, 0, maxReplyButtons)
	for _, b := range r.Buttons {
		label := strings.TrimSpace(b.Label)
		if label == "" {
			continue
		}
		action := strings.TrimSpace(b.Action)
		if !isKnownAction(action) {
			action = domain.ActionContinue
		}
		out.Buttons = append(out.Buttons, domain.ActionButton{Label: label, Action: action})
		if len(out.Buttons) == maxReplyButtons {
			break
		}
	}

	out.RecommendedContacts = make([]domain.RecommendedContact, 0, len(r.RecommendedContacts))
	for _, c := range r.RecommendedContacts {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		out.RecommendedContacts = append(out.RecommendedContacts, c)
	}
	return out
}

func isKnownAction(a string) bool {
	switch a {
	case domain.ActionContinue, domain.ActionSelectContact, domain.ActionWriteScript, domain.ActionMicroAction,
		domain.ActionEndChat, domain.ActionContactNow, domain.ActionTomorrow:
		return true
	}
	return false
}

func plainReply(text string) domain.AIResponse {
	return domain.AIResponse{
		Mode:                domain.DialogueAction,
		ResponseText:        text,
		EmotionLevel:        1,
		StructureType:       domain.StructureUnknown,
		Buttons:             []domain.ActionButton{{Label: "Continue", Action: domain.ActionContinue}},
		RecommendedContacts: []domain.RecommendedContact{},
		SafetyFlags:         domain.RiskNone,
	}
}

var (
	fenceStartRe   = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEndRe     = regexp.MustCompile("(?is)\\s*```\\s*$")
	responseTextRe = regexp.MustCompile(`(?is)"response_text"\s*:\s*"((?:\\.|[^"\\])*)"`)
)

// CleanLLMJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func CleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStartRe.ReplaceAllString(s, "")
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SanitizeFallbackText es el último recurso cuando no hay JSON parseable.
func SanitizeFallbackText(raw string) string {
	t := strings.TrimSpace(CleanLLMJSONResponse(raw))
	if t == "" {
		return ""
	}
	if text, ok := ExtractResponseTextByRegex(t); ok {
		return text
	}
	// Un objeto JSON sin response_text no se muestra al usuario.
	if objs := jsonObjects(t); len(objs) == 1 && objs[0] == t {
		return ""
	}
	return t
}

// ExtractResponseTextByRegex extrae "response_text" aunque el JSON venga truncado o sucio.
func ExtractResponseTextByRegex(s string) (string, bool) {
	m := responseTextRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}

	raw := m[1]
	unq, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		unq = unescapeMinimalEscapes(raw)
	}
	unq = strings.TrimSpace(UnescapeMaybeDoubleEscaped(unq))
	if unq == "" {
		return "", false
	}
	return unq, true
}

// UnescapeMaybeDoubleEscaped intenta arreglar casos donde el modelo manda texto doble-escapado.
func UnescapeMaybeDoubleEscaped(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, `\`) {
		return s
	}

	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	if unq, err := strconv.Unquote(quoted); err == nil {
		return strings.TrimSpace(unq)
	}
	return unescapeMinimalEscapes(s)
}

func unescapeMinimalEscapes(s string) string {
	replacer := strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
