package models

// NodeType describes how a conversation node behaves during traversal.
type NodeType string

const (
	NodeTypeBot          NodeType = "bot"
	NodeTypeUserDecision NodeType = "user_decision"
	NodeTypeTerminal     NodeType = "terminal"
)

// Category identifies which sales skill a node exercises.
type Category string

const (
	CategoryIntroduction      Category = "introduction"
	CategoryRapport           Category = "rapport"
	CategoryDiscovery         Category = "discovery"
	CategoryObjectionHandling Category = "objection_handling"
	CategoryClosing           Category = "closing"
)

// Categories lists the five scoring categories in their canonical order.
// Evaluation math depends on this order being stable.
func Categories() []Category {
	return []Category{
		CategoryIntroduction,
		CategoryRapport,
		CategoryDiscovery,
		CategoryObjectionHandling,
		CategoryClosing,
	}
}

// Intent is one recognizable agent utterance category at a given node.
// Examples are lowercase substrings matched against the agent's speech.
type Intent struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Examples []string `json:"examples"`
}

// Transition maps a detected intent to the next node in the graph.
type Transition struct {
	IntentID   string `json:"intentId"`
	NextNodeID string `json:"nextNodeId"`
}

// DecisionNode is one state in the scripted conversation graph. Nodes are
// immutable after load; the full set forms a directed graph and cycles are
// permitted.
type DecisionNode struct {
	ID                  string       `json:"id"`
	Type                NodeType     `json:"type"`
	Label               string       `json:"label"`
	Category            Category     `json:"category"`
	BotResponses        []string     `json:"botResponses"`
	ExpectedIntents     []Intent     `json:"expectedIntents,omitempty"`
	Transitions         []Transition `json:"transitions,omitempty"`
	ClarificationPrompt string       `json:"clarificationPrompt,omitempty"`
	DefaultNextNodeID   string       `json:"defaultNextNodeId,omitempty"`
}

// IsTerminal reports whether traversal stops at this node.
func (n DecisionNode) IsTerminal() bool {
	return n.Type == NodeTypeTerminal
}

// Scenario binds a start node and the required-step rubric used for scoring.
type Scenario struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	Description           string                `json:"description,omitempty"`
	StartNodeID           string                `json:"startNodeId"`
	PersonaPrompt         string                `json:"personaPrompt,omitempty"`
	RequiredCategorySteps map[Category][]string `json:"requiredCategorySteps"`
	SuccessTerminalID     string                `json:"successTerminalId,omitempty"`
	FailureTerminalIDs    []string              `json:"failureTerminalIds,omitempty"`
}

// RequiredSteps flattens the rubric into a single node id list, iterating
// categories in canonical order so the result is deterministic.
func (s Scenario) RequiredSteps() []string {
	steps := make([]string, 0)
	for _, category := range Categories() {
		steps = append(steps, s.RequiredCategorySteps[category]...)
	}
	return steps
}

// IsFailureTerminal reports whether the given terminal id represents a
// declined or abandoned call for this scenario.
func (s Scenario) IsFailureTerminal(nodeID string) bool {
	for _, id := range s.FailureTerminalIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// FlowDocument is the static configuration loaded once at process start.
type FlowDocument struct {
	Nodes     []DecisionNode `json:"nodes"`
	Scenarios []Scenario     `json:"scenarios"`
}
