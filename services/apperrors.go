package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind klassifiziert Fehler der Engine für die HTTP-Schicht.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindInvalidState
)

// AppError ist ein klassifizierter Fehler mit menschenlesbarer Nachricht.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Status mappt die Fehlerklasse auf einen HTTP-Statuscode.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func InvalidInputf(format string, args ...any) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidStatef(format string, args ...any) *AppError {
	return &AppError{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// KindOf gibt die Fehlerklasse zurück, oder 0 für nicht klassifizierte Fehler.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}
