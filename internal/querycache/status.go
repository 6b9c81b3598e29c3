package querycache

import "time"

type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusError
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of an entry. Value is the last good
// value and is kept across Error and Stale.
type Snapshot struct {
	Key       Key
	Status    Status
	Value     any
	HasValue  bool
	Err       error
	IsLoading bool
	IsFresh   bool
	FetchedAt time.Time
}
