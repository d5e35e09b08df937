package models

import "time"

// Speaker identifies which side of the call produced a turn.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// SessionStatus tracks the lifecycle of a call session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// StudentInfo identifies the trainee on a call.
type StudentInfo struct {
	Name    string `json:"name"`
	BatchID string `json:"batch_id"`
}

// ConversationTurn is a single utterance in a call transcript. Turns are
// created once and appended in chronological order, never mutated.
type ConversationTurn struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Speaker           Speaker   `json:"speaker"`
	Text              string    `json:"text"`
	NodeID            string    `json:"node_id"`
	IntentID          string    `json:"intent_id,omitempty"`
	ResponseVariation *int      `json:"response_variation,omitempty"`
}

// CallSession is the single mutable aggregate for one simulated call. All
// mutation goes through its methods; callers must guarantee a single writer
// per session.
type CallSession struct {
	ID                string             `json:"id"`
	ScenarioID        string             `json:"scenario_id"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           *time.Time         `json:"end_time,omitempty"`
	Turns             []ConversationTurn `json:"turns"`
	NodePathTraversed []string           `json:"node_path_traversed"`
	CurrentNodeID     string             `json:"current_node_id"`
	IsTerminal        bool               `json:"is_terminal"`
	TerminalNodeID    string             `json:"terminal_node_id,omitempty"`
	Status            SessionStatus      `json:"status"`
	StudentInfo       *StudentInfo       `json:"student_info,omitempty"`
}

// NewCallSession creates a session positioned at the scenario's start node.
func NewCallSession(id, scenarioID, startNodeID string, startedAt time.Time) *CallSession {
	return &CallSession{
		ID:                id,
		ScenarioID:        scenarioID,
		StartTime:         startedAt,
		Turns:             []ConversationTurn{},
		NodePathTraversed: []string{startNodeID},
		CurrentNodeID:     startNodeID,
		Status:            SessionInProgress,
	}
}

// AppendTurn records an utterance on the transcript.
func (s *CallSession) AppendTurn(turn ConversationTurn) {
	s.Turns = append(s.Turns, turn)
}

// MoveToNode makes nodeID the current node. The traversed path records a node
// only the first time it is visited, so cycles through the graph never
// duplicate path entries, but the current node always follows the transition.
func (s *CallSession) MoveToNode(nodeID string) {
	s.CurrentNodeID = nodeID
	for _, visited := range s.NodePathTraversed {
		if visited == nodeID {
			return
		}
	}
	s.NodePathTraversed = append(s.NodePathTraversed, nodeID)
}

// HasVisited reports whether the node appears on the traversed path.
func (s *CallSession) HasVisited(nodeID string) bool {
	for _, visited := range s.NodePathTraversed {
		if visited == nodeID {
			return true
		}
	}
	return false
}

// Terminate completes the session exactly once. Subsequent calls are no-ops
// so a terminal node reached twice cannot rewrite the outcome.
func (s *CallSession) Terminate(terminalNodeID string, endedAt time.Time) {
	if s.IsTerminal {
		return
	}
	s.IsTerminal = true
	s.TerminalNodeID = terminalNodeID
	s.EndTime = &endedAt
	s.Status = SessionCompleted
}

// Duration returns elapsed call time, using now for in-progress sessions.
func (s *CallSession) Duration(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}
