package httpdto

// AskRequest is used for POST /ask. Prompt may be empty but must be present.
type AskRequest struct {
	Prompt *string `json:"prompt" binding:"required"`
	Model  string  `json:"model,omitempty"`
}

// AskResponse carries the completion text or the fallback apology.
type AskResponse struct {
	Answer string `json:"answer"`
}
