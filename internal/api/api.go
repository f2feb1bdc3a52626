// Package api holds the wire types exchanged with the coordination endpoint.
package api

const (
	StartPath    = "/coordinator/start"
	ContinuePath = "/coordinator/continue"
)

// DefaultConversationTitle is the title sent with every generation request.
const DefaultConversationTitle = "Generated Post"

type StartRequest struct {
	UserRequest       string `json:"user_request"`
	ConversationTitle string `json:"conversation_title"`
}

type ContinueRequest struct {
	ConversationID string `json:"conversation_id"`
	UserResponse   string `json:"user_response"`
}

// StartResponse is the generation result. The coordinator answers both start
// and continue calls with this shape.
type StartResponse struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	FinalOutput    string `json:"final_output"`
}
