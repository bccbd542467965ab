package bot

import "sync"

type SessionState int

const (
	StateIdle SessionState = iota
	StateMenuShown
)

func (s SessionState) String() string {
	if s == StateMenuShown {
		return "MenuShown"
	}
	return "Idle"
}

// sessionRegistry keeps the per-chat selection state in memory only.
type sessionRegistry struct {
	mu     sync.Mutex
	states map[int64]SessionState
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{states: make(map[int64]SessionState)}
}

func (r *sessionRegistry) State(chatID int64) SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[chatID]
}

func (r *sessionRegistry) Set(chatID int64, state SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state == StateIdle {
		delete(r.states, chatID)
		return
	}
	r.states[chatID] = state
}
