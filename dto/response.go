package dto

// ApiResponse is the success envelope of every endpoint.
type ApiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ApiError is the failure envelope. Errors is never null.
type ApiError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func NewApiError(status int, message string, details ...string) ApiError {
	if details == nil {
		details = []string{}
	}
	return ApiError{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	}
}
