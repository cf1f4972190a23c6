package geo

// PositionReason classifies why a device position could not be obtained.
type PositionReason string

const (
	// ReasonPermissionDenied means the platform refused location access.
	ReasonPermissionDenied PositionReason = "permission_denied"
	// ReasonUnavailable means no position fix could be produced.
	ReasonUnavailable PositionReason = "unavailable"
	// ReasonTimeout means the position request did not complete in time.
	ReasonTimeout PositionReason = "timeout"
)

// PositionError is returned when the device position provider fails.
type PositionError struct {
	Reason PositionReason
}

func (e *PositionError) Error() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		return "position unavailable: permission denied"
	case ReasonTimeout:
		return "position unavailable: request timed out"
	default:
		return "position unavailable"
	}
}

// PositionProvider yields the caller's current device position. The concrete
// implementation lives with the client platform; the resolver only depends on
// this contract. Failures must be reported as *PositionError.
type PositionProvider interface {
	CurrentPosition() (Coordinates, error)
}
