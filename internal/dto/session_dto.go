package dto

import (
	"time"

	"github.com/calldojo/calldojo-api/internal/models"
)

// SessionCreateRequest starts a new simulated call.
type SessionCreateRequest struct {
	StudentName string `json:"student_name" validate:"omitempty,max=255"`
	BatchID     string `json:"batch_id" validate:"omitempty,max=64"`
	ScenarioID  string `json:"scenario_id" validate:"omitempty,max=128"`
}

// SessionUpdateRequest patches the mutable metadata of a session. The
// transcript, traversed path, id, and start time are protected and cannot
// be overwritten through this request.
type SessionUpdateRequest struct {
	StudentInfo *StudentInfoPayload `json:"student_info" validate:"omitempty"`
}

// StudentInfoPayload identifies the trainee.
type StudentInfoPayload struct {
	Name    string `json:"name" validate:"required,max=255"`
	BatchID string `json:"batch_id" validate:"required,max=64"`
}

// SessionResponse is the serialized representation of a call session.
type SessionResponse struct {
	ID                string              `json:"id"`
	ScenarioID        string              `json:"scenario_id"`
	StartTime         time.Time           `json:"start_time"`
	EndTime           *time.Time          `json:"end_time,omitempty"`
	Turns             []TurnResponse      `json:"turns"`
	NodePathTraversed []string            `json:"node_path_traversed"`
	CurrentNodeID     string              `json:"current_node_id"`
	IsTerminal        bool                `json:"is_terminal"`
	TerminalNodeID    string              `json:"terminal_node_id,omitempty"`
	Status            string              `json:"status"`
	StudentInfo       *StudentInfoPayload `json:"student_info,omitempty"`
}

// TurnResponse is the serialized representation of a transcript turn.
type TurnResponse struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Speaker           string    `json:"speaker"`
	Text              string    `json:"text"`
	NodeID            string    `json:"node_id"`
	IntentID          string    `json:"intent_id,omitempty"`
	ResponseVariation *int      `json:"response_variation,omitempty"`
}

// NewSessionResponse converts a session aggregate into a DTO.
func NewSessionResponse(session *models.CallSession) SessionResponse {
	response := SessionResponse{
		ID:                session.ID,
		ScenarioID:        session.ScenarioID,
		StartTime:         session.StartTime,
		EndTime:           session.EndTime,
		Turns:             NewTurnResponseSlice(session.Turns),
		NodePathTraversed: session.NodePathTraversed,
		CurrentNodeID:     session.CurrentNodeID,
		IsTerminal:        session.IsTerminal,
		TerminalNodeID:    session.TerminalNodeID,
		Status:            string(session.Status),
	}
	if session.StudentInfo != nil {
		response.StudentInfo = &StudentInfoPayload{
			Name:    session.StudentInfo.Name,
			BatchID: session.StudentInfo.BatchID,
		}
	}
	return response
}

// NewSessionResponseSlice converts a slice of sessions into DTOs.
func NewSessionResponseSlice(sessions []*models.CallSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, NewSessionResponse(session))
	}
	return out
}

// NewTurnResponse converts a transcript turn into a DTO.
func NewTurnResponse(turn models.ConversationTurn) TurnResponse {
	return TurnResponse{
		ID:                turn.ID,
		Timestamp:         turn.Timestamp,
		Speaker:           string(turn.Speaker),
		Text:              turn.Text,
		NodeID:            turn.NodeID,
		IntentID:          turn.IntentID,
		ResponseVariation: turn.ResponseVariation,
	}
}

// NewTurnResponseSlice converts transcript turns into DTOs.
func NewTurnResponseSlice(turns []models.ConversationTurn) []TurnResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, turn := range turns {
		out = append(out, NewTurnResponse(turn))
	}
	return out
}
