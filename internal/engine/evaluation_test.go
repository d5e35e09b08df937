package engine

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/flow"
	"github.com/calldojo/calldojo-api/internal/models"
)

// fiveStepDocument builds a graph where each category has exactly one
// required step, which keeps the score arithmetic easy to check by hand.
func fiveStepDocument() models.FlowDocument {
	nodes := []models.DecisionNode{
		{ID: "n1", Type: models.NodeTypeBot, Label: "Intro", Category: models.CategoryIntroduction, BotResponses: []string{"a"}},
		{ID: "n2", Type: models.NodeTypeBot, Label: "Rapport", Category: models.CategoryRapport, BotResponses: []string{"b"}},
		{ID: "n3", Type: models.NodeTypeBot, Label: "Discovery", Category: models.CategoryDiscovery, BotResponses: []string{"c"}},
		{ID: "n4", Type: models.NodeTypeBot, Label: "Objections", Category: models.CategoryObjectionHandling, BotResponses: []string{"d"}},
		{ID: "n5", Type: models.NodeTypeBot, Label: "Close", Category: models.CategoryClosing, BotResponses: []string{"e"}},
		{ID: "terminal-booked", Type: models.NodeTypeTerminal, Label: "Booked", Category: models.CategoryClosing, BotResponses: []string{"bye"}},
		{ID: "terminal-decline", Type: models.NodeTypeTerminal, Label: "Declined", Category: models.CategoryClosing, BotResponses: []string{"no thanks"}},
	}
	return models.FlowDocument{
		Nodes: nodes,
		Scenarios: []models.Scenario{
			{
				ID:          "training",
				Name:        "Training",
				StartNodeID: "n1",
				RequiredCategorySteps: map[models.Category][]string{
					models.CategoryIntroduction:      {"n1"},
					models.CategoryRapport:           {"n2"},
					models.CategoryDiscovery:         {"n3"},
					models.CategoryObjectionHandling: {"n4"},
					models.CategoryClosing:           {"n5"},
				},
				SuccessTerminalID:  "terminal-booked",
				FailureTerminalIDs: []string{"terminal-decline"},
			},
		},
	}
}

func newTestEvaluator(t *testing.T) *EvaluationEngine {
	t.Helper()
	store, err := flow.New(fiveStepDocument())
	require.NoError(t, err)
	decisions := NewDecisionEngine(store, zerolog.Nop())
	return NewEvaluationEngine(decisions, zerolog.Nop())
}

func sessionWithPath(path []string) *models.CallSession {
	session := models.NewCallSession("sess-1", "training", path[0], time.Now())
	for _, nodeID := range path[1:] {
		session.MoveToNode(nodeID)
	}
	return session
}

func TestEvaluateUnknownScenario(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Evaluate(sessionWithPath([]string{"n1"}), "missing")
	require.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestEvaluatePartialPath(t *testing.T) {
	e := newTestEvaluator(t)
	session := sessionWithPath([]string{"n1", "n2"})

	result, err := e.Evaluate(session, "training")
	require.NoError(t, err)

	require.InDelta(t, 40.0, result.NodePathAccuracy, 0.001)
	require.Equal(t, 2, result.CompletedSteps)
	require.Equal(t, 5, result.TotalRequiredSteps)

	require.Equal(t, 100, result.CategoryScores.Introduction)
	require.Equal(t, 100, result.CategoryScores.Rapport)
	require.Equal(t, 0, result.CategoryScores.Discovery)
	require.Equal(t, 0, result.CategoryScores.ObjectionHandling)
	// Closing coverage is 0 and the unterminated penalty floors at 0.
	require.Equal(t, 0, result.CategoryScores.Closing)

	require.Equal(t, 40, result.OverallScore)

	require.Contains(t, result.Mistakes, categoryMistakes[models.CategoryDiscovery])
	require.Contains(t, result.Mistakes, categoryMistakes[models.CategoryObjectionHandling])
	require.Contains(t, result.Mistakes, categoryMistakes[models.CategoryClosing])
	require.NotContains(t, result.Mistakes, categoryMistakes[models.CategoryIntroduction])
}

func TestEvaluateIsPure(t *testing.T) {
	e := newTestEvaluator(t)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	session := sessionWithPath([]string{"n1", "n3", "n5"})

	first, err := e.Evaluate(session, "training")
	require.NoError(t, err)
	second, err := e.Evaluate(session, "training")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEvaluateOverallScoreIsMeanOfFiveCategories(t *testing.T) {
	e := newTestEvaluator(t)

	paths := [][]string{
		{"n1"},
		{"n1", "n2", "n3"},
		{"n1", "n2", "n3", "n4", "n5"},
	}
	for _, path := range paths {
		result, err := e.Evaluate(sessionWithPath(path), "training")
		require.NoError(t, err)

		sum := result.CategoryScores.Introduction +
			result.CategoryScores.Rapport +
			result.CategoryScores.Discovery +
			result.CategoryScores.ObjectionHandling +
			result.CategoryScores.Closing
		require.Equal(t, int(math.Round(float64(sum)/5)), result.OverallScore)
	}
}

func TestEvaluateClosingPenaltyWhenNotTerminal(t *testing.T) {
	e := newTestEvaluator(t)

	// Full closing coverage but the call never terminated: 100 - 30.
	session := sessionWithPath([]string{"n1", "n2", "n3", "n4", "n5"})
	result, err := e.Evaluate(session, "training")
	require.NoError(t, err)
	require.Equal(t, 70, result.CategoryScores.Closing)
}

func TestEvaluateSuccessTerminalForcesClosing(t *testing.T) {
	e := newTestEvaluator(t)

	// No closing step visited, but the success terminal overrides coverage.
	session := sessionWithPath([]string{"n1", "terminal-booked"})
	session.Terminate("terminal-booked", time.Now())

	result, err := e.Evaluate(session, "training")
	require.NoError(t, err)
	require.Equal(t, 100, result.CategoryScores.Closing)
}

func TestEvaluateFailureTerminalAddsMistake(t *testing.T) {
	e := newTestEvaluator(t)

	session := sessionWithPath([]string{"n1", "terminal-decline"})
	session.Terminate("terminal-decline", time.Now())

	result, err := e.Evaluate(session, "training")
	require.NoError(t, err)
	require.Contains(t, result.Mistakes, "Prospect ended call or declined - could have handled better")
}

func TestEvaluateListsNeverEmptyAndBounded(t *testing.T) {
	e := newTestEvaluator(t)

	// Worst case: nothing visited beyond the start node.
	worst, err := e.Evaluate(sessionWithPath([]string{"n1"}), "training")
	require.NoError(t, err)
	require.NotEmpty(t, worst.Mistakes)
	require.NotEmpty(t, worst.Recommendations)
	require.LessOrEqual(t, len(worst.Mistakes), 7)
	require.LessOrEqual(t, len(worst.Recommendations), 5)

	// Best case: everything visited, successful close.
	best := sessionWithPath([]string{"n1", "n2", "n3", "n4", "n5", "terminal-booked"})
	best.Terminate("terminal-booked", time.Now())
	perfect, err := e.Evaluate(best, "training")
	require.NoError(t, err)
	require.Equal(t, []string{"Overall good execution"}, perfect.Mistakes)
	require.Equal(t, []string{"Continue practicing - you're doing great!"}, perfect.Recommendations)
	require.Equal(t, 100, perfect.OverallScore)
}

func TestEvaluateSummaryNamesStrongestAndWeakest(t *testing.T) {
	e := newTestEvaluator(t)

	result, err := e.Evaluate(sessionWithPath([]string{"n1", "n2"}), "training")
	require.NoError(t, err)
	require.Contains(t, result.Summary, "Your strongest area was rapport")
	require.Contains(t, result.Summary, "discovery needs work")
}
