package domain

// ChatRequest is one user question addressed to a session.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// ChatResponse carries the generated answer and the passages it was grounded on.
// Sources are in retrieval order.
type ChatResponse struct {
	Answer  string     `json:"answer"`
	Sources []TextUnit `json:"sources"`
}
