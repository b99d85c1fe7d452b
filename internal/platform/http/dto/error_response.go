// Package dto holds response bodies shared by every HTTP handler.
package dto

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
