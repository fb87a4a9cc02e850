package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Sources, stores and services return
// these (optionally wrapped) so the edges can translate them into exit codes or
// HTTP statuses.
//
// - ErrNotFound: no record with the requested identity
// - ErrUnavailable: a source origin could not be opened or stopped answering
// - ErrMalformed: one raw unit from an origin could not be turned into a record
// - ErrInvalidConfig: a source or server setting is missing or inconsistent
var (
	ErrNotFound      = errors.New("not found")
	ErrUnavailable   = errors.New("unavailable")
	ErrMalformed     = errors.New("malformed record")
	ErrInvalidConfig = errors.New("invalid configuration")
)
