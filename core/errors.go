package dialogue

import "errors"

var (
	ErrSessionActive    = errors.New("dialogue session already active")
	ErrControllerClosed = errors.New("dialogue controller closed")
	ErrNotConfigured    = errors.New("dialogue controller not configured")

	ErrGateBusy   = errors.New("response gate queue full")
	ErrGateClosed = errors.New("response gate closed")
)
