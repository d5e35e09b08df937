package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/models"
	"github.com/calldojo/calldojo-api/internal/observability"
	"github.com/calldojo/calldojo-api/internal/repository"
	"github.com/calldojo/calldojo-api/pkg/ai"
)

var (
	// ErrSessionNotFound indicates the call session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCompleted indicates a turn was attempted on a finished call.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrScenarioNotFound indicates no scenario could be resolved for a new call.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrConversationStuck indicates no transition or default could resolve
	// the next node. The traversed path is left untouched.
	ErrConversationStuck = errors.New("could not determine next step in conversation")
	// ErrInvalidTerminalNode indicates a manual end named a node that does
	// not exist or is not terminal.
	ErrInvalidTerminalNode = errors.New("invalid terminal node")
)

const (
	responseSourceAI       = "ai"
	responseSourceScripted = "scripted"
)

// CallService owns the write path of call sessions: creation, turn
// orchestration, and termination. It guarantees a single writer per session
// with a per-session lock.
type CallService interface {
	CreateSession(ctx context.Context, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (dto.SessionResponse, error)
	ListSessions(ctx context.Context) ([]dto.SessionResponse, error)
	UpdateSession(ctx context.Context, sessionID string, payload dto.SessionUpdateRequest) (dto.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	AddMessage(ctx context.Context, sessionID string, payload dto.MessageRequest) (dto.TurnResponse, error)
	Transcript(ctx context.Context, sessionID string) (dto.ConversationResponse, error)
	Respond(ctx context.Context, sessionID string, payload dto.RespondRequest) (dto.RespondResponse, error)
	EndCall(ctx context.Context, sessionID, terminalNodeID string) (dto.SessionResponse, error)
}

type callService struct {
	sessions        repository.SessionRepository
	decisions       *engine.DecisionEngine
	responder       ai.Responder
	validator       *validator.Validate
	sanitizer       *bluemonday.Policy
	defaultScenario string
	logger          zerolog.Logger
	tracer          trace.Tracer
	now             func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCallService builds the call orchestration service.
func NewCallService(sessions repository.SessionRepository, decisions *engine.DecisionEngine, responder ai.Responder, defaultScenario string, validate *validator.Validate, logger zerolog.Logger) CallService {
	return &callService{
		sessions:        sessions,
		decisions:       decisions,
		responder:       responder,
		validator:       validate,
		sanitizer:       bluemonday.StrictPolicy(),
		defaultScenario: defaultScenario,
		logger:          logger.With().Str("component", "call_service").Logger(),
		tracer:          otel.Tracer("github.com/calldojo/calldojo-api/internal/service/call"),
		now:             time.Now,
		locks:           make(map[string]*sync.Mutex),
	}
}

// lockSession serializes writers for one session id. Engines are stateless;
// the session aggregate is the only shared mutable resource. Entries are kept
// for the process lifetime: removing one while a goroutine still waits on it
// would let a later caller mint a second mutex for the same id.
func (s *callService) lockSession(sessionID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *callService) CreateSession(ctx context.Context, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	scenarioID := payload.ScenarioID
	if scenarioID == "" {
		scenarioID = s.defaultScenario
	}

	scenario, ok := s.decisions.Scenario(scenarioID)
	if !ok {
		// Unknown scenario falls back to the configured default before
		// giving up, mirroring how trainers share stale deep links.
		scenario, ok = s.decisions.Scenario(s.defaultScenario)
		if !ok {
			return dto.SessionResponse{}, ErrScenarioNotFound
		}
		s.logger.Warn().Str("requested", scenarioID).Str("fallback", scenario.ID).Msg("unknown scenario, using default")
	}

	session := models.NewCallSession(uuid.NewString(), scenario.ID, scenario.StartNodeID, s.now().UTC())
	if payload.StudentName != "" && payload.BatchID != "" {
		session.StudentInfo = &models.StudentInfo{Name: payload.StudentName, BatchID: payload.BatchID}
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return dto.SessionResponse{}, err
	}

	observability.ActiveSessions().Inc()
	s.logger.Info().Str("session_id", session.ID).Str("scenario_id", scenario.ID).Msg("session created")
	return dto.NewSessionResponse(session), nil
}

func (s *callService) GetSession(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *callService) ListSessions(ctx context.Context) ([]dto.SessionResponse, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSessionResponseSlice(sessions), nil
}

func (s *callService) UpdateSession(ctx context.Context, sessionID string, payload dto.SessionUpdateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	// Only unprotected metadata is writable; id, start time, transcript,
	// and traversed path cannot be patched from outside.
	if payload.StudentInfo != nil {
		session.StudentInfo = &models.StudentInfo{
			Name:    payload.StudentInfo.Name,
			BatchID: payload.StudentInfo.BatchID,
		}
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *callService) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if !session.IsTerminal {
		observability.ActiveSessions().Dec()
	}
	return nil
}

func (s *callService) AddMessage(ctx context.Context, sessionID string, payload dto.MessageRequest) (dto.TurnResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TurnResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.TurnResponse{}, err
	}

	speaker := models.SpeakerUser
	if payload.Speaker == string(models.SpeakerBot) {
		speaker = models.SpeakerBot
	}

	turn := s.newTurn(speaker, s.sanitizer.Sanitize(payload.Text), session.CurrentNodeID)
	session.AppendTurn(turn)

	if err := s.sessions.Save(ctx, session); err != nil {
		return dto.TurnResponse{}, err
	}
	return dto.NewTurnResponse(turn), nil
}

func (s *callService) Transcript(ctx context.Context, sessionID string) (dto.ConversationResponse, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.ConversationResponse{}, err
	}
	return dto.ConversationResponse{
		SessionID: session.ID,
		Turns:     dto.NewTurnResponseSlice(session.Turns),
	}, nil
}

// Respond runs one full conversation turn. The user turn is always recorded;
// the traversed path only advances when a transition or default resolves, so
// a stuck conversation never corrupts the path.
func (s *callService) Respond(ctx context.Context, sessionID string, payload dto.RespondRequest) (dto.RespondResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RespondResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "call.respond", trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
	defer span.End()

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.RespondResponse{}, err
	}
	if session.IsTerminal {
		return dto.RespondResponse{}, ErrSessionCompleted
	}

	currentNodeID := session.CurrentNodeID
	currentNode, ok := s.decisions.Node(currentNodeID)
	if !ok {
		return dto.RespondResponse{}, ErrConversationStuck
	}

	message := s.sanitizer.Sanitize(payload.Message)

	userTurn := s.newTurn(models.SpeakerUser, message, currentNodeID)
	userTurn.IntentID = s.detectIntent(ctx, session, currentNode, message)
	session.AppendTurn(userTurn)

	nextNode, ok := s.decisions.NextNode(currentNodeID, userTurn.IntentID)
	if !ok {
		// Persist the transcript but leave the path untouched.
		if err := s.sessions.Save(ctx, session); err != nil {
			return dto.RespondResponse{}, err
		}
		return dto.RespondResponse{}, ErrConversationStuck
	}

	reply, variation, source := s.generateReply(ctx, session, nextNode, message)

	session.MoveToNode(nextNode.ID)

	botTurn := s.newTurn(models.SpeakerBot, reply, nextNode.ID)
	botTurn.IntentID = userTurn.IntentID
	botTurn.ResponseVariation = variation
	session.AppendTurn(botTurn)

	isTerminal := nextNode.IsTerminal()
	if isTerminal {
		session.Terminate(nextNode.ID, s.now().UTC())
		observability.ActiveSessions().Dec()
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return dto.RespondResponse{}, err
	}

	s.logger.Debug().
		Str("session_id", session.ID).
		Str("intent", userTurn.IntentID).
		Str("node", nextNode.ID).
		Str("source", source).
		Msg("turn completed")

	return dto.RespondResponse{
		Reply:          reply,
		DetectedIntent: userTurn.IntentID,
		NodeID:         nextNode.ID,
		NodeLabel:      nextNode.Label,
		NodeCategory:   string(nextNode.Category),
		IsTerminal:     isTerminal,
		ResponseSource: source,
		Session:        dto.NewSessionResponse(session),
	}, nil
}

func (s *callService) EndCall(ctx context.Context, sessionID, terminalNodeID string) (dto.SessionResponse, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if session.IsTerminal {
		return dto.NewSessionResponse(session), nil
	}

	if terminalNodeID != "" {
		node, ok := s.decisions.Node(terminalNodeID)
		if !ok || !node.IsTerminal() {
			return dto.SessionResponse{}, ErrInvalidTerminalNode
		}
		session.MoveToNode(node.ID)
		session.Terminate(node.ID, s.now().UTC())
	} else {
		// Manual hang-up with no terminal reached: the session completes
		// but records no terminal node, which evaluation treats as an
		// unsuccessful close.
		session.IsTerminal = true
		end := s.now().UTC()
		session.EndTime = &end
		session.Status = models.SessionCompleted
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return dto.SessionResponse{}, err
	}

	observability.ActiveSessions().Dec()
	s.logger.Info().Str("session_id", session.ID).Str("terminal_node", session.TerminalNodeID).Msg("session ended")
	return dto.NewSessionResponse(session), nil
}

// detectIntent tries the AI classifier first when the node declares intents,
// then always falls back to the deterministic keyword detector.
func (s *callService) detectIntent(ctx context.Context, session *models.CallSession, node models.DecisionNode, message string) string {
	if len(node.ExpectedIntents) > 0 {
		options := make([]ai.IntentOption, 0, len(node.ExpectedIntents))
		for _, intent := range node.ExpectedIntents {
			options = append(options, ai.IntentOption{ID: intent.ID, Label: intent.Label, Examples: intent.Examples})
		}

		detected, err := s.responder.ClassifyIntent(ctx, ai.IntentInput{
			UserMessage: message,
			Options:     options,
			History:     historyTurns(session.Turns),
		})
		if err == nil {
			return detected
		}
		if !errors.Is(err, ai.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("ai intent classification failed")
		}
	}

	return s.decisions.DetectIntent(message, node.ID)
}

// generateReply asks the responder for a persona reply and falls back to the
// node's scripted variations on any failure. The scripted path avoids
// repeating the variation last used for the same node.
func (s *callService) generateReply(ctx context.Context, session *models.CallSession, node models.DecisionNode, message string) (string, *int, string) {
	intentLabels := make([]string, 0, len(node.ExpectedIntents))
	for _, intent := range node.ExpectedIntents {
		intentLabels = append(intentLabels, intent.Label)
	}

	persona := ""
	if scenario, ok := s.decisions.Scenario(session.ScenarioID); ok {
		persona = scenario.PersonaPrompt
	}

	reply, err := s.responder.GenerateReply(ctx, ai.ReplyInput{
		NodeLabel:            node.Label,
		NodeCategory:         string(node.Category),
		ClarificationPrompt:  node.ClarificationPrompt,
		ExampleResponses:     node.BotResponses,
		ExpectedIntentLabels: intentLabels,
		PersonaPrompt:        persona,
		UserMessage:          message,
		History:              historyTurns(session.Turns),
	})
	if err == nil && strings.TrimSpace(reply) != "" {
		return reply, nil, responseSourceAI
	}
	if err != nil && !errors.Is(err, ai.ErrUnavailable) {
		s.logger.Warn().Err(err).Msg("ai reply generation failed")
	}

	scripted, ok := s.decisions.SelectBotResponse(node.ID, s.lastVariationFor(session, node.ID))
	if !ok {
		return "I'm not sure how to respond to that.", nil, responseSourceScripted
	}
	variation := scripted.VariationIndex
	return scripted.Text, &variation, responseSourceScripted
}

// lastVariationFor finds the variation index of the most recent bot turn on
// the given node, feeding the anti-repetition rule.
func (s *callService) lastVariationFor(session *models.CallSession, nodeID string) *int {
	for i := len(session.Turns) - 1; i >= 0; i-- {
		turn := session.Turns[i]
		if turn.Speaker == models.SpeakerBot && turn.NodeID == nodeID && turn.ResponseVariation != nil {
			return turn.ResponseVariation
		}
	}
	return nil
}

func (s *callService) loadSession(ctx context.Context, sessionID string) (*models.CallSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *callService) newTurn(speaker models.Speaker, text, nodeID string) models.ConversationTurn {
	return models.ConversationTurn{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Speaker:   speaker,
		Text:      text,
		NodeID:    nodeID,
	}
}

func historyTurns(turns []models.ConversationTurn) []ai.HistoryTurn {
	history := make([]ai.HistoryTurn, 0, len(turns))
	for _, turn := range turns {
		history = append(history, ai.HistoryTurn{
			Speaker:   string(turn.Speaker),
			Text:      turn.Text,
			Timestamp: turn.Timestamp,
		})
	}
	return history
}
