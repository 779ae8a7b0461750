package httpdto

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func NewErrorResponse(detail string, code string) ErrorResponse {
	return ErrorResponse{
		Detail: detail,
		Code:   code,
	}
}

// MessageResponse is returned by GET /
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}
