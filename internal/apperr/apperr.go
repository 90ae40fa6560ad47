// Package apperr holds the error classes every handler maps to a response status.
package apperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrDateOrder  = errors.New("end date cannot be before start date")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("state conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Code returns the machine readable class of err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDateOrder):
		return "date_order"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

// Status maps err to an http status code.
func Status(err error) int {
	switch Code(err) {
	case "date_order", "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "forbidden":
		return http.StatusForbidden
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a json body. Internal errors are logged and hidden from the caller.
func Respond(c *gin.Context, err error) {
	code := Code(err)
	status := Status(err)

	msg := err.Error()
	if code == "internal" {
		log.Printf("[%s %s] internal error: %v", c.Request.Method, c.FullPath(), err)
		msg = "server error, try again later"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

// Validation wraps msg as a validation error.
func Validation(msg string) error {
	return &wrapped{msg: msg, class: ErrValidation}
}

// NotFound wraps what as a not found error, e.g. NotFound("task").
func NotFound(what string) error {
	return &wrapped{msg: what + " not found", class: ErrNotFound}
}

// Conflict wraps msg as a state conflict error.
func Conflict(msg string) error {
	return &wrapped{msg: msg, class: ErrConflict}
}

// Forbidden wraps msg as a forbidden error.
func Forbidden(msg string) error {
	return &wrapped{msg: msg, class: ErrForbidden}
}

type wrapped struct {
	msg   string
	class error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.class }
