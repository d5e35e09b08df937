package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/models"
)

func validDocument() models.FlowDocument {
	return models.FlowDocument{
		Nodes: []models.DecisionNode{
			{
				ID:           "start",
				Type:         models.NodeTypeBot,
				Label:        "Start",
				Category:     models.CategoryIntroduction,
				BotResponses: []string{"Hello?"},
				ExpectedIntents: []models.Intent{
					{ID: "greets", Label: "Greets", Examples: []string{"hi"}},
				},
				Transitions: []models.Transition{
					{IntentID: "greets", NextNodeID: "end"},
				},
			},
			{
				ID:           "end",
				Type:         models.NodeTypeTerminal,
				Label:        "End",
				Category:     models.CategoryClosing,
				BotResponses: []string{"Bye."},
			},
		},
		Scenarios: []models.Scenario{
			{
				ID:          "basic",
				StartNodeID: "start",
				RequiredCategorySteps: map[models.Category][]string{
					models.CategoryIntroduction: {"start"},
				},
			},
		},
	}
}

func TestNewValidDocument(t *testing.T) {
	store, err := New(validDocument())
	require.NoError(t, err)

	node, ok := store.Node("start")
	require.True(t, ok)
	require.Equal(t, models.NodeTypeBot, node.Type)

	_, ok = store.Node("missing")
	require.False(t, ok)

	require.Len(t, store.Scenarios(), 1)

	start, ok := store.ScenarioStartNode("basic")
	require.True(t, ok)
	require.Equal(t, "start", start.ID)
}

func TestNewRejectsDanglingTransition(t *testing.T) {
	doc := validDocument()
	doc.Nodes[0].Transitions[0].NextNodeID = "nowhere"

	_, err := New(doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown node")
}

func TestNewRejectsUnknownTransitionIntent(t *testing.T) {
	doc := validDocument()
	doc.Nodes[0].Transitions[0].IntentID = "undeclared"

	_, err := New(doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown intent")
}

func TestNewRejectsDanglingDefaultNext(t *testing.T) {
	doc := validDocument()
	doc.Nodes[0].DefaultNextNodeID = "nowhere"

	_, err := New(doc)
	require.Error(t, err)
}

func TestNewRejectsMissingScenarioStart(t *testing.T) {
	doc := validDocument()
	doc.Scenarios[0].StartNodeID = "nowhere"

	_, err := New(doc)
	require.Error(t, err)
}

func TestNewRejectsUnknownRequiredStep(t *testing.T) {
	doc := validDocument()
	doc.Scenarios[0].RequiredCategorySteps[models.CategoryClosing] = []string{"nowhere"}

	_, err := New(doc)
	require.Error(t, err)
}

func TestNewRejectsBotNodeWithoutResponses(t *testing.T) {
	doc := validDocument()
	doc.Nodes[0].BotResponses = nil

	_, err := New(doc)
	require.Error(t, err)
}

func TestNewRejectsDuplicateNodeID(t *testing.T) {
	doc := validDocument()
	doc.Nodes = append(doc.Nodes, doc.Nodes[0])

	_, err := New(doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate node id")
}

func TestParseValidatesSchema(t *testing.T) {
	// Node type outside the enum must fail before referential checks.
	raw := []byte(`{
		"nodes": [
			{"id": "start", "type": "mystery", "label": "Start", "category": "introduction", "botResponses": ["Hello?"]}
		],
		"scenarios": [
			{"id": "basic", "startNodeId": "start", "requiredCategorySteps": {}}
		]
	}`)

	_, err := Parse(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestParseRejectsUnknownRubricCategory(t *testing.T) {
	// A rubric keyed on a category outside the enum would otherwise be
	// silently ignored by scoring.
	raw := []byte(`{
		"nodes": [
			{"id": "start", "type": "bot", "label": "Start", "category": "introduction", "botResponses": ["Hello?"]}
		],
		"scenarios": [
			{"id": "basic", "startNodeId": "start", "requiredCategorySteps": {"exploratory": ["start"]}}
		]
	}`)

	_, err := Parse(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestParseAcceptsWellFormedDocument(t *testing.T) {
	raw := []byte(`{
		"nodes": [
			{"id": "start", "type": "bot", "label": "Start", "category": "introduction", "botResponses": ["Hello?"]},
			{"id": "end", "type": "terminal", "label": "End", "category": "closing", "botResponses": ["Bye."]}
		],
		"scenarios": [
			{
				"id": "basic",
				"startNodeId": "start",
				"requiredCategorySteps": {"introduction": ["start"]},
				"successTerminalId": "end"
			}
		]
	}`)

	store, err := Parse(raw)
	require.NoError(t, err)

	scenario, ok := store.Scenario("basic")
	require.True(t, ok)
	require.Equal(t, "end", scenario.SuccessTerminalID)
}
