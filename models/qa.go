package models

// Response codes used by the HTTP layer. CodeNotEnoughResults is a sentinel
// outcome, not an error: it signals that retrieval found nothing relevant
// enough to answer from.
const (
	CodeOK               = 0
	CodeNotEnoughResults = 1
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query string `json:"query" binding:"required"`
	Items int    `json:"items"`
}

// Source describes one relevant chunk backing a generated answer.
type Source struct {
	Answer     string  `json:"answer"`
	Filename   string  `json:"filename"`
	Title      string  `json:"title,omitempty"`
	Author     string  `json:"author,omitempty"`
	PageNumber int     `json:"page_number,omitempty"`
	TotalPages int     `json:"total_pages,omitempty"`
	Distance   float64 `json:"distance"`
	IsRelevant bool    `json:"is_relevant"`
}

// AskResult carries the generated answer together with its sources.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Generic is the envelope every endpoint responds with.
type Generic struct {
	Message string `json:"message"`
	Result  any    `json:"result"`
	Code    int    `json:"code"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
