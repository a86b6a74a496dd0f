package client

import (
	"errors"
	"fmt"
)

// Kind klassifiziert Fehler danach, wie eine Oberfläche sie behandeln soll.
type Kind int

const (
	// KindServer: Antwort empfangen, aber fehlerhaft (5xx oder sonstige 4xx).
	KindServer Kind = iota
	// KindNotFound: Einzelabfrage ohne Treffer.
	KindNotFound
	// KindInvalidParameter: vom Nutzer korrigierbare Eingabe (400/422).
	KindInvalidParameter
	// KindNetwork: keine Antwort erhalten, Wiederholungen erschöpft.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindNetwork:
		return "network"
	default:
		return "server"
	}
}

// APIError ist der normalisierte Fehler aller Client-Aufrufe.
type APIError struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Kind == KindNetwork {
		if e.Err != nil {
			return "network error: " + e.Err.Error()
		}
		return "network error"
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable meldet, ob ein erneuter Versuch sinnvoll sein kann.
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork
}

func kindForStatus(status int) Kind {
	switch status {
	case 404:
		return KindNotFound
	case 400, 422:
		return KindInvalidParameter
	default:
		return KindServer
	}
}

// IsKind prüft, ob err ein APIError der gegebenen Art ist.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsNotFound ist eine Abkürzung für IsKind(err, KindNotFound).
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
