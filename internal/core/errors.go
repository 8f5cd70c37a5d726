package core

// SyncError indicates that a synchronization could not be initiated: the
// data source is disabled, already queued or syncing, or unknown. No state
// has been mutated when a SyncError is returned.
type SyncError struct {
	Reason string
}

func (e *SyncError) Error() string {
	return "cannot initiate sync: " + e.Reason
}

// NewSyncError creates a SyncError with the given reason.
func NewSyncError(reason string) *SyncError {
	return &SyncError{Reason: reason}
}
