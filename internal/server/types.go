// Package server provides the HTTP surface of the slideshow service:
// handlers, middleware, routes, and request/response DTOs.
package server

// ConvertRequest is the HTTP request body for creating a slideshow video.
type ConvertRequest struct {
	// AudioURL is the URL of the audio track (mp3, wav).
	AudioURL string `json:"audio_url" validate:"required,url"`
	// ImageURLs are the URLs of the slideshow images, in display order.
	ImageURLs []string `json:"image_urls" validate:"required,min=1,dive,required,url"`
}

// DeleteRequest is the HTTP request body for deleting a generated video.
type DeleteRequest struct {
	// Filename is the name of the video file inside the videos directory.
	Filename string `json:"filename" validate:"required"`
}

// ErrorResponse is the error format of the convert endpoint.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
}

// StatusResponse is the response format of the delete and resize endpoints.
type StatusResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`
	// Message is the human-readable detail.
	Message string `json:"message"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
