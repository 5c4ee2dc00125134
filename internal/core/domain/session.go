package domain

// SessionState is the lifecycle state of one device session.
type SessionState string

const (
	StateLoggedOut      SessionState = "logged_out"
	StateSelectingStore SessionState = "selecting_store"
	StateProvisioning   SessionState = "provisioning"
	StateAwaitingAccess SessionState = "awaiting_access"
	StateActive         SessionState = "active"
)

// validSessionTransitions defines the allowed state machine transitions.
var validSessionTransitions = map[SessionState][]SessionState{
	StateLoggedOut:      {StateSelectingStore, StateProvisioning, StateAwaitingAccess, StateActive},
	StateSelectingStore: {StateActive, StateLoggedOut},
	StateProvisioning:   {StateActive, StateLoggedOut},
	StateAwaitingAccess: {StateLoggedOut},
	StateActive:         {StateSelectingStore, StateLoggedOut},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range validSessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CartLine is an ephemeral cart entry owned exclusively by one session.
// It snapshots the catalog item so a concurrent price edit does not
// change a cart already being rung up.
type CartLine struct {
	Item     CatalogItem `json:"item"`
	Quantity int         `json:"quantity"`
}
