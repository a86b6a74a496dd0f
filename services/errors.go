package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound wird geliefert, wenn kein Datensatz zur ID bzw. zum Slug existiert.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter markiert ungültige Filter- oder Paginierungsparameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrStore markiert Fehler des Datenspeichers (Verbindung, Abfrage).
	ErrStore = errors.New("conflict store unavailable")
)

// InvalidParameterError beschreibt einen einzelnen ungültigen Parameter.
type InvalidParameterError struct {
	Param  string
	Detail string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Detail)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalidParam(param, format string, args ...interface{}) error {
	return &InvalidParameterError{Param: param, Detail: fmt.Sprintf(format, args...)}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
