package request

import (
	"errors"
	"net/http"
)

// ErrInternalServer is the generic body for unexpected handler failures.
var ErrInternalServer = errors.New("internal server error")

// ClientWriter wraps a http.ResponseWriter and remembers the status code, so
// middleware can record it after the handler runs.
type ClientWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// NewClientWriter creates a new ClientWriter.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader implements http.ResponseWriter.
func (w *ClientWriter) WriteHeader(statusCode int) {
	if w.written {
		return
	}
	w.statusCode = statusCode
	w.written = true
	w.ResponseWriter.WriteHeader(statusCode)
}

// StatusCode returns the status code sent to the client.
func (w *ClientWriter) StatusCode() int {
	return w.statusCode
}
