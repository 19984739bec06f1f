package practicum

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnection indicates the review API could not be reached.
	ErrConnection = errors.New("API request connection error")
	// ErrInvalidResponse indicates the API answer does not have the expected shape.
	ErrInvalidResponse = errors.New("некорректный ответ API")
	// ErrUnknownStatus indicates a homework status without a known verdict.
	ErrUnknownStatus = errors.New("неизвестный статус домашней работы")
)

// StatusError is returned when the API answers with a non-200 status code.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("API returned non-200 status code: %d", e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code
		if e.Message != "" {
			msg += ": " + e.Message
		}
		msg += ")"
	}
	return msg
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
