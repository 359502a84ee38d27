package cart

import "github.com/oakline/storefront-core/internal/gateway"

// State describes the collection lifecycle. The local collection is the
// source of truth only in StateReady.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateMutating
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	default:
		return "unknown"
	}
}

// Line is a remote cart line plus the UI-session-scoped selection flag.
// Selection is never persisted remotely and resets to true on every load.
type Line struct {
	gateway.CartLine
	Selected bool `json:"selected"`
}
