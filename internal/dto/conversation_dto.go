package dto

// MessageRequest appends a raw transcript turn without advancing the graph.
// Used by callers that run their own turn orchestration.
type MessageRequest struct {
	Text    string `json:"text" validate:"required,min=1,max=4000"`
	Speaker string `json:"speaker" validate:"omitempty,oneof=user bot"`
}

// RespondRequest runs a full conversation turn: record the agent's message,
// classify intent, advance the graph, and produce the prospect's reply.
type RespondRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// RespondResponse is the outcome of one conversation turn.
type RespondResponse struct {
	Reply          string          `json:"reply"`
	DetectedIntent string          `json:"detected_intent"`
	NodeID         string          `json:"node_id"`
	NodeLabel      string          `json:"node_label"`
	NodeCategory   string          `json:"node_category"`
	IsTerminal     bool            `json:"is_terminal"`
	ResponseSource string          `json:"response_source"`
	Session        SessionResponse `json:"session"`
}

// ConversationResponse is a session transcript.
type ConversationResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []TurnResponse `json:"turns"`
}
