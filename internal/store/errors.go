// Package store is the Object Store Gateway: a thin, dependency-injected
// seam over the object-storage SDK, so the job engines
// never import the SDK directly.
package store

import "errors"

// Sentinel errors for object-store failure classification. Use errors.Is
// to check.
var (
	ErrNotFound      = errors.New("store: object not found")
	ErrAccessDenied  = errors.New("store: access denied")
	ErrNoCredentials = errors.New("store: no credentials available")
)

// ValidationStatus is the result of Validate's bucket HEAD probe.
type ValidationStatus int

const (
	ValidationOK ValidationStatus = iota
	ValidationNotExists
	ValidationAccessDenied
	ValidationNoCredentials
	ValidationOther
)

// String renders the status for logging and CLI display.
func (s ValidationStatus) String() string {
	switch s {
	case ValidationOK:
		return "ok"
	case ValidationNotExists:
		return "not-exists"
	case ValidationAccessDenied:
		return "access-denied"
	case ValidationNoCredentials:
		return "no-credentials"
	default:
		return "other"
	}
}
