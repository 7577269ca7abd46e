// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package web is a collection of functions and types for building the admin
// HTTP surface of long-running services.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// StatusErr is a sentinel error type used to represent HTTP status code errors.
type StatusErr int

// Error implements the error interface.
// It returns a lowercase representation of the HTTP status text for the wrapped code.
func (se StatusErr) Error() string { return strings.ToLower(http.StatusText(int(se))) }

const (
	// ErrBadRequest represents a bad request error (HTTP 400).
	ErrBadRequest StatusErr = http.StatusBadRequest
	// ErrNotFound represents a not found error (HTTP 404).
	ErrNotFound StatusErr = http.StatusNotFound
	// ErrMethodNotAllowed represents a method not allowed error (HTTP 405).
	ErrMethodNotAllowed StatusErr = http.StatusMethodNotAllowed
	// ErrServiceUnavailable represents a temporarily unavailable service (HTTP 503).
	ErrServiceUnavailable StatusErr = http.StatusServiceUnavailable
	// ErrInternalServerError represents an internal server error (HTTP 500).
	ErrInternalServerError StatusErr = http.StatusInternalServerError
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RespondJSON marshals the provided response object as JSON and writes it to
// the [http.ResponseWriter] with the given status code.
func RespondJSON(w http.ResponseWriter, status int, response any) {
	b, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		http.Error(w, "JSON marshal error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
	w.Write([]byte("\n"))
}

// RespondError writes err as a JSON error response. If err wraps a
// [StatusErr], its code is used; otherwise the status is 500 and the error is
// logged to l.
func RespondError(l *slog.Logger, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se StatusErr
	if errors.As(err, &se) {
		status = int(se)
	} else if l != nil {
		l.Error("HTTP error", "error", err)
	}
	RespondJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
}
