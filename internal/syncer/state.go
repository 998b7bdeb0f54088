package syncer

// State is a Sync Session's position in its lifecycle.
//
//	Idle -> Connecting -> Syncing -> Closed
//	           |             |
//	           +--> Errored <+
type State int32

const (
	Idle State = iota
	Connecting
	Syncing
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Syncing:
		return "syncing"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Closed or Errored.
func (s State) Terminal() bool { return s == Closed || s == Errored }
