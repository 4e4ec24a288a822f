package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/engine"
	"rmi/internal/llm"
	"rmi/internal/metrics"
)

const (
	maxRecommendedContacts = 3
	replySchemaName        = "rmi_reply"

	greetingText       = "Hi! What would you like to talk about regarding your relationships?"
	technicalIssueText = "Sorry, I'm experiencing a technical issue right now. Please try again later, or reach out to someone you trust if you need support."
)

// replySchema describe el payload que se le exige al modelo en modo estricto.
type replySchema struct {
	Mode                string               `json:"mode" jsonschema:"enum=holding,enum=clarify,enum=action,enum=mediation,enum=boundary"`
	ResponseText        string               `json:"response_text"`
	EmotionLevel        int                  `json:"emotion_level" jsonschema:"minimum=0,maximum=3"`
	StructureType       string               `json:"structure_type" jsonschema:"enum=l1,enum=l2,enum=l3,enum=l4,enum=unknown"`
	DependencyRisk      bool                 `json:"dependency_risk"`
	Buttons             []replyButtonSchema  `json:"buttons"`
	RecommendedContacts []replyContactSchema `json:"recommended_contacts"`
	BoundaryFlags       bool                 `json:"boundary_flags"`
	SafetyFlags         string               `json:"safety_flags" jsonschema:"enum=none,enum=r1,enum=r2,enum=r3"`
	ExplainCard         string               `json:"explain_card"`
}

type replyButtonSchema struct {
	Label  string `json:"label"`
	Action string `json:"action" jsonschema:"enum=continue,enum=select_contact,enum=write_script,enum=micro_action,enum=end_chat,enum=contact_now,enum=tomorrow"`
}

type replyContactSchema struct {
	Name    string `json:"name"`
	Reason  string `json:"reason"`
	Scripts struct {
		Short string `json:"short"`
		Long  string `json:"long"`
	} `json:"scripts"`
	LowBarrier string `json:"lowBarrier"`
}

var replyResponseSchema = llm.GenerateSchema[replySchema]()

// ReplyInput es la foto de la conversación a responder.
type ReplyInput struct {
	Messages   []domain.ChatMessage
	Contacts   []domain.Contact
	Assessment engine.Assessment
	AISessions int
	Settings   domain.Settings
}

// ReplyService genera la respuesta estructurada. Nunca devuelve error: ante una falla
// del modelo responde con el mensaje de problema técnico.
type ReplyService struct {
	logger  *zap.Logger
	llm     llm.LLMClient
	engine  *engine.Engine
	metrics *metrics.Metrics
	timeout time.Duration
	parser  ReplyParser
}

func NewReplyService(logger *zap.Logger, client llm.LLMClient, eng *engine.Engine, m *metrics.Metrics, timeout time.Duration) *ReplyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eng == nil {
		eng = engine.New(nil)
	}
	return &ReplyService{
		logger:  logger,
		llm:     client,
		engine:  eng,
		metrics: m,
		timeout: timeout,
		parser:  DefaultReplyParser,
	}
}

func (s *ReplyService) Generate(ctx context.Context, in ReplyInput) domain.AIResponse {
	last := engine.LastUserMessage(in.Messages)
	if last == nil {
		return GreetingReply()
	}

	preScreen := s.engine.PreScreenCrisis(last.Text)
	s.metrics.RecordPreScreen(string(preScreen))

	now := s.engine.Now()
	pc := PromptContext{
		Contacts:       in.Contacts,
		Suggestions:    in.Assessment.Suggestions,
		EmotionLevel:   in.Assessment.EFinal,
		AIC:            in.Assessment.AIC,
		RII:            in.Assessment.RII,
		SessionMinutes: sessionMinutes(in.Messages, now),
		AISessions:     in.AISessions,
		Summary:        ConversationSummary(in.Messages),
		Settings:       in.Settings,
		Now:            now,
	}
	req := llm.Request{
		System:     BuildSystemPrompt(pc) + CrisisOverride(preScreen),
		Turns:      ConversationTurns(in.Messages),
		Schema:     replyResponseSchema,
		SchemaName: replySchemaName,
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := s.llm.Generate(callCtx, req)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		s.metrics.RecordLLMRequest(status, time.Since(started))
		s.logger.Warn("reply generation failed", zap.String("user_id", last.UserID), zap.Error(err))
		return TechnicalIssueReply(preScreen)
	}
	s.metrics.RecordLLMRequest("ok", time.Since(started))

	resp, ok := s.parser.Parse(raw)
	if !ok {
		s.logger.Debug("reply was not valid json, using plain text", zap.String("user_id", last.UserID))
	}
	resp.RecommendedContacts = filterRecommendations(resp.RecommendedContacts, in.Contacts, in.Settings)

	merged := engine.MergeRisk(preScreen, resp.SafetyFlags)
	if merged != resp.SafetyFlags {
		s.metrics.RecordRiskOverride(string(merged))
		s.logger.Info("safety flag raised by pre-screen",
			zap.String("user_id", last.UserID),
			zap.String("llm", string(resp.SafetyFlags)),
			zap.String("final", string(merged)))
	}
	resp.SafetyFlags = merged
	return resp
}

// GreetingReply es la apertura cuando todavía no hay mensajes del usuario.
func GreetingReply() domain.AIResponse {
	return domain.AIResponse{
		Mode:                domain.DialogueClarify,
		ResponseText:        greetingText,
		EmotionLevel:        0,
		StructureType:       domain.StructureUnknown,
		Buttons:             []domain.ActionButton{{Label: "Continue", Action: domain.ActionContinue}},
		RecommendedContacts: []domain.RecommendedContact{},
		SafetyFlags:         domain.RiskNone,
	}
}

// TechnicalIssueReply conserva el nivel detectado localmente.
func TechnicalIssueReply(preScreen domain.RiskLevel) domain.AIResponse {
	if !preScreen.Valid() {
		preScreen = domain.RiskNone
	}
	return domain.AIResponse{
		Mode:                domain.DialogueHolding,
		ResponseText:        technicalIssueText,
		EmotionLevel:        1,
		StructureType:       domain.StructureUnknown,
		Buttons:             []domain.ActionButton{{Label: "Retry", Action: domain.ActionContinue}},
		RecommendedContacts: []domain.RecommendedContact{},
		SafetyFlags:         preScreen,
	}
}

func sessionMinutes(messages []domain.ChatMessage, now time.Time) int {
	start := engine.CurrentSessionStart(messages)
	if start == 0 {
		return 0
	}
	elapsed := now.UnixMilli() - start
	if elapsed <= 0 {
		return 0
	}
	return int(math.Round(float64(elapsed) / 60000))
}

// filterRecommendations deja solo nombres de la red (con su forma canónica), sin repetir.
func filterRecommendations(recs []domain.RecommendedContact, contacts []domain.Contact, settings domain.Settings) []domain.RecommendedContact {
	out := []domain.RecommendedContact{}
	if !settings.AllowContactRecommendation {
		return out
	}
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[strings.ToLower(strings.TrimSpace(c.Name))] = c.Name
	}
	seen := make(map[string]bool)
	for _, r := range recs {
		key := strings.ToLower(strings.TrimSpace(r.Name))
		canonical, ok := names[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		r.Name = canonical
		if !settings.AllowScriptGeneration {
			r.Scripts = domain.ContactScripts{}
		}
		out = append(out, r)
		if len(out) == maxRecommendedContacts {
			break
		}
	}
	return out
}
