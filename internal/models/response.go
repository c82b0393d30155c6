package models

// APIResponse is the JSON envelope for every API response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewMessageResponse creates a success response carrying a status message
// alongside the mutated resource.
func NewMessageResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

// NewValidationErrorResponse creates a validation error response
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errors,
	}
}

// ImageUploadResponse is returned after successful image upload
type ImageUploadResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	Users          int64 `json:"users"`
	Questions      int64 `json:"questions"`
	Answers        int64 `json:"answers"`
	PendingReports int64 `json:"pending_reports"`
	Badges         int64 `json:"badges"`
}
