package entityfilter

import "errors"

var (
	// ErrUnknownOptionKind is returned for an option kind the provider does not serve
	ErrUnknownOptionKind = errors.New("unknown option kind")
	// ErrUnknownAction is returned by Dispatch for an unregistered action name
	ErrUnknownAction = errors.New("unknown action")
)
