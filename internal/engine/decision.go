package engine

import (
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/flow"
	"github.com/calldojo/calldojo-api/internal/models"
)

// DefaultIntentID is returned by DetectIntent when the current node declares
// no expected intents at all.
const DefaultIntentID = "default"

// BotResponse is a selected scripted line together with the variation index
// that produced it, so the caller can feed the index back on the next turn
// for anti-repetition.
type BotResponse struct {
	Text           string `json:"text"`
	VariationIndex int    `json:"variation_index"`
}

// PathValidation reports rubric coverage for a traversed node path.
type PathValidation struct {
	VisitedRequiredSteps []string `json:"visited_required_steps"`
	MissedSteps          []string `json:"missed_steps"`
	Accuracy             float64  `json:"accuracy"`
}

// DecisionEngine walks the conversation graph: intent detection, transition
// resolution, and scripted response selection. It holds no mutable state and
// is safe for concurrent use; the only nondeterminism is the injected random
// source used for response variation.
type DecisionEngine struct {
	store  *flow.Store
	intn   func(n int) int
	logger zerolog.Logger
}

// NewDecisionEngine builds a decision engine over the loaded flow store.
func NewDecisionEngine(store *flow.Store, logger zerolog.Logger) *DecisionEngine {
	return &DecisionEngine{
		store:  store,
		intn:   rand.Intn,
		logger: logger.With().Str("component", "decision_engine").Logger(),
	}
}

// Node is a pure lookup for a graph node.
func (e *DecisionEngine) Node(nodeID string) (models.DecisionNode, bool) {
	return e.store.Node(nodeID)
}

// Scenario is a pure lookup for a scenario rubric.
func (e *DecisionEngine) Scenario(scenarioID string) (models.Scenario, bool) {
	return e.store.Scenario(scenarioID)
}

// Scenarios lists every configured scenario.
func (e *DecisionEngine) Scenarios() []models.Scenario {
	return e.store.Scenarios()
}

// ScenarioStartNode resolves the node a scenario's calls begin on.
func (e *DecisionEngine) ScenarioStartNode(scenarioID string) (models.DecisionNode, bool) {
	return e.store.ScenarioStartNode(scenarioID)
}

// DetectIntent classifies agent speech with ordered case-insensitive
// substring matching: intents and their examples are tried in declaration
// order and the first hit wins. When nothing matches, the node's first
// declared intent is assumed rather than stalling the conversation; a node
// with no expected intents yields DefaultIntentID.
func (e *DecisionEngine) DetectIntent(text, nodeID string) string {
	node, ok := e.store.Node(nodeID)
	if !ok || len(node.ExpectedIntents) == 0 {
		return DefaultIntentID
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, intent := range node.ExpectedIntents {
		for _, example := range intent.Examples {
			if strings.Contains(normalized, strings.ToLower(example)) {
				return intent.ID
			}
		}
	}

	return node.ExpectedIntents[0].ID
}

// NextNode resolves the transition for a detected intent. Transition table
// first, then the node's default next node, otherwise not-found — the caller
// must treat that as a stuck conversation and apply its own fallback.
func (e *DecisionEngine) NextNode(currentNodeID, intentID string) (models.DecisionNode, bool) {
	current, ok := e.store.Node(currentNodeID)
	if !ok {
		return models.DecisionNode{}, false
	}

	for _, transition := range current.Transitions {
		if transition.IntentID == intentID {
			return e.store.Node(transition.NextNodeID)
		}
	}

	if current.DefaultNextNodeID != "" {
		return e.store.Node(current.DefaultNextNodeID)
	}

	return models.DecisionNode{}, false
}

// SelectBotResponse picks a scripted response variation for a node. A single
// variation is always index 0. With a known last variation the pick is
// uniform over the remaining indices, so the same line is never read twice
// in a row. This is a soft guarantee: no memory beyond the single last turn.
func (e *DecisionEngine) SelectBotResponse(nodeID string, lastVariationIndex *int) (BotResponse, bool) {
	node, ok := e.store.Node(nodeID)
	if !ok || node.Type == models.NodeTypeUserDecision {
		return BotResponse{}, false
	}

	responses := node.BotResponses
	if len(responses) == 0 {
		return BotResponse{}, false
	}

	var index int
	switch {
	case len(responses) == 1:
		index = 0
	case lastVariationIndex != nil:
		available := make([]int, 0, len(responses)-1)
		for i := range responses {
			if i != *lastVariationIndex {
				available = append(available, i)
			}
		}
		if len(available) > 0 {
			index = available[e.intn(len(available))]
		} else {
			index = e.intn(len(responses))
		}
	default:
		index = e.intn(len(responses))
	}

	if index < 0 || index >= len(responses) {
		index = 0
	}

	return BotResponse{Text: responses[index], VariationIndex: index}, true
}

// IsTerminalNode reports whether the node ends the call.
func (e *DecisionEngine) IsTerminalNode(nodeID string) bool {
	node, ok := e.store.Node(nodeID)
	return ok && node.IsTerminal()
}

// ValidateNodePath measures how much of the required rubric a traversed path
// covered. An empty rubric is vacuously satisfied at 100 percent.
func (e *DecisionEngine) ValidateNodePath(path, requiredSteps []string) PathValidation {
	visited := make(map[string]struct{}, len(path))
	for _, nodeID := range path {
		visited[nodeID] = struct{}{}
	}

	validation := PathValidation{
		VisitedRequiredSteps: []string{},
		MissedSteps:          []string{},
	}
	for _, step := range requiredSteps {
		if _, ok := visited[step]; ok {
			validation.VisitedRequiredSteps = append(validation.VisitedRequiredSteps, step)
		} else {
			validation.MissedSteps = append(validation.MissedSteps, step)
		}
	}

	if len(requiredSteps) == 0 {
		validation.Accuracy = 100
		return validation
	}

	validation.Accuracy = float64(len(validation.VisitedRequiredSteps)) / float64(len(requiredSteps)) * 100
	return validation
}
