package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/models"
)

// ErrScenarioNotFound indicates an evaluation was requested against a
// scenario id that does not exist. Scoring without a rubric is meaningless,
// so this is surfaced to the caller instead of being absorbed.
var ErrScenarioNotFound = errors.New("scenario not found")

const (
	maxMistakes        = 7
	maxRecommendations = 5

	// Penalty applied to the closing score when the call never reached a
	// terminal node.
	unterminatedClosingPenalty = 30

	recommendationThreshold = 80
)

var categoryMistakes = map[models.Category]string{
	models.CategoryIntroduction:      "Skipped or rushed through the introduction and value proposition",
	models.CategoryRapport:           "Failed to build rapport with the prospect",
	models.CategoryDiscovery:         "Incomplete discovery - did not ask enough qualifying questions about the prospect's needs",
	models.CategoryObjectionHandling: "Did not address prospect objections properly",
	models.CategoryClosing:           "Failed to close or advance the call to a concrete next step",
}

var categoryRecommendations = map[models.Category]string{
	models.CategoryIntroduction:      "Practice your value proposition - make it more compelling and concise",
	models.CategoryRapport:           "Work on building rapport - personalize your approach and listen more",
	models.CategoryDiscovery:         "Spend more time in discovery - ask deeper questions about the prospect's goals and situation",
	models.CategoryObjectionHandling: "Develop stronger objection handling for the common concerns in this scenario",
	models.CategoryClosing:           "Improve your closing techniques - be more confident asking for commitment",
}

// EvaluationEngine scores a finished or in-progress call session against a
// scenario's required-step rubric. It depends on the decision engine only
// for scenario and step lookup and is pure: the same session and scenario
// always produce the same result, timestamp aside.
type EvaluationEngine struct {
	decisions *DecisionEngine
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEvaluationEngine builds the evaluator.
func NewEvaluationEngine(decisions *DecisionEngine, logger zerolog.Logger) *EvaluationEngine {
	return &EvaluationEngine{
		decisions: decisions,
		logger:    logger.With().Str("component", "evaluation_engine").Logger(),
		now:       time.Now,
	}
}

// Evaluate computes the full score report for a session. It never mutates
// the session, so a mid-call preview evaluation is safe.
func (e *EvaluationEngine) Evaluate(session *models.CallSession, scenarioID string) (models.EvaluationResult, error) {
	scenario, ok := e.decisions.Scenario(scenarioID)
	if !ok {
		return models.EvaluationResult{}, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioID)
	}

	requiredSteps := scenario.RequiredSteps()
	pathValidation := e.decisions.ValidateNodePath(session.NodePathTraversed, requiredSteps)

	categoryScores := e.calculateCategoryScores(session, scenario)
	overallScore := int(math.Round(sumCategoryScores(categoryScores) / 5))

	mistakes := e.generateMistakes(session, scenario)
	recommendations := e.generateRecommendations(categoryScores, pathValidation.MissedSteps)

	return models.EvaluationResult{
		SessionID:          session.ID,
		OverallScore:       overallScore,
		CategoryScores:     categoryScores,
		Summary:            e.generateSummary(overallScore, categoryScores),
		Mistakes:           mistakes,
		Recommendations:    recommendations,
		NodePathAccuracy:   pathValidation.Accuracy,
		CompletedSteps:     len(pathValidation.VisitedRequiredSteps),
		TotalRequiredSteps: len(requiredSteps),
		Timestamp:          e.now().UTC(),
		StudentInfo:        session.StudentInfo,
	}, nil
}

// calculateCategoryScores derives per-category coverage, then applies the
// closing adjustments: a 30 point penalty when the call never terminated,
// and a forced 100 when the scenario's success terminal was reached. The
// success override wins regardless of which closing sub-steps were visited.
func (e *EvaluationEngine) calculateCategoryScores(session *models.CallSession, scenario models.Scenario) models.CategoryScores {
	scores := models.CategoryScores{}

	for _, category := range models.Categories() {
		required := scenario.RequiredCategorySteps[category]
		if len(required) == 0 {
			// No required steps means nothing to miss. Scoring 0 here would
			// drag down every scenario that doesn't exercise all five skills.
			scores.Set(category, 100)
			continue
		}
		completed := 0
		for _, step := range required {
			if session.HasVisited(step) {
				completed++
			}
		}
		scores.Set(category, int(math.Round(float64(completed)/float64(len(required))*100)))
	}

	if !session.IsTerminal {
		closing := scores.Closing - unterminatedClosingPenalty
		if closing < 0 {
			closing = 0
		}
		scores.Closing = closing
	}

	if scenario.SuccessTerminalID != "" && session.TerminalNodeID == scenario.SuccessTerminalID {
		scores.Closing = 100
	}

	return scores
}

func (e *EvaluationEngine) generateMistakes(session *models.CallSession, scenario models.Scenario) []string {
	mistakes := make([]string, 0, maxMistakes)

	for _, category := range models.Categories() {
		missed := false
		for _, step := range scenario.RequiredCategorySteps[category] {
			if !session.HasVisited(step) {
				missed = true
				break
			}
		}
		if missed {
			mistakes = append(mistakes, categoryMistakes[category])
		}
	}

	if session.TerminalNodeID != "" && scenario.IsFailureTerminal(session.TerminalNodeID) {
		mistakes = append(mistakes, "Prospect ended call or declined - could have handled better")
	}

	if len(mistakes) == 0 {
		mistakes = append(mistakes, "Overall good execution")
	}

	if len(mistakes) > maxMistakes {
		mistakes = mistakes[:maxMistakes]
	}
	return mistakes
}

func (e *EvaluationEngine) generateRecommendations(scores models.CategoryScores, missedSteps []string) []string {
	type categoryScore struct {
		category models.Category
		score    int
	}

	ranked := make([]categoryScore, 0, 5)
	for _, category := range models.Categories() {
		ranked = append(ranked, categoryScore{category: category, score: scores.Get(category)})
	}
	// Stable sort keeps canonical category order for ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	recommendations := make([]string, 0, maxRecommendations)
	for _, entry := range ranked[:3] {
		if entry.score < recommendationThreshold {
			recommendations = append(recommendations, categoryRecommendations[entry.category])
		}
	}

	if len(missedSteps) > 2 {
		recommendations = append(recommendations, "Follow the conversation flow more closely - you skipped key steps")
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue practicing - you're doing great!")
	}

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations
}

func (e *EvaluationEngine) generateSummary(overallScore int, scores models.CategoryScores) string {
	var opening string
	switch {
	case overallScore >= 85:
		opening = "Excellent call! You nailed this. "
	case overallScore >= 70:
		opening = "Good effort. Here's what to focus on: "
	case overallScore >= 50:
		opening = "Solid start. There's room for improvement in: "
	default:
		opening = "This was challenging. Let's focus on: "
	}

	categories := models.Categories()
	sorted := make([]models.Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scores.Get(sorted[i]) < scores.Get(sorted[j])
	})

	weakest := strings.ReplaceAll(string(sorted[0]), "_", " ")
	strongest := strings.ReplaceAll(string(sorted[len(sorted)-1]), "_", " ")

	return fmt.Sprintf("%sYour strongest area was %s, but %s needs work.", opening, strongest, weakest)
}

func sumCategoryScores(scores models.CategoryScores) float64 {
	total := 0
	for _, category := range models.Categories() {
		total += scores.Get(category)
	}
	return float64(total)
}
