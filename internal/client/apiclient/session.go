package apiclient

import (
	"sync"
	"time"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	// StateFallbackMode is an authenticated sub-state: at least one endpoint
	// class answered with a network failure or 404 and is served locally.
	StateFallbackMode
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFallbackMode:
		return "fallback"
	default:
		return "unauthenticated"
	}
}

// User is the identity behind the current token.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Role        string
	ExpiresAt   time.Time
	// Placeholder marks an identity synthesised while the backend was
	// unreachable. Nothing it sees is live data.
	Placeholder bool
}

// Session holds the per-login state: the bearer token (memory only), the
// user, and the fallback bookkeeping. It is safe for concurrent use.
type Session struct {
	mu             sync.RWMutex
	token          string
	user           User
	authenticating bool
	unreachable    map[string]struct{}
	noticeShown    bool
	hooks          []func()
	// epoch changes with every Init and Clear. Requests remember it so a
	// late answer cannot touch the fallback state of a newer session.
	epoch uint64
}

func NewSession() *Session {
	return &Session{unreachable: map[string]struct{}{}}
}

// OnClear registers fn to run whenever the session is cleared or replaced
// by a different login.
func (s *Session) OnClear(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Init commits a new login. Fallback bookkeeping starts afresh. If a
// previous token was present the clear hooks run first.
func (s *Session) Init(token string, user User) {
	s.mu.Lock()
	replaced := s.token != ""
	s.token = token
	s.user = user
	s.authenticating = false
	s.unreachable = map[string]struct{}{}
	s.noticeShown = false
	s.epoch++
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	if replaced {
		for _, fn := range hooks {
			fn()
		}
	}
}

// Clear drops the token, the user and the fallback state, then runs the
// clear hooks.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = User{}
	s.authenticating = false
	s.unreachable = map[string]struct{}{}
	s.noticeShown = false
	s.epoch++
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the current user and whether a token is present.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.authenticating:
		return StateAuthenticating
	case s.token == "":
		return StateUnauthenticated
	case len(s.unreachable) > 0:
		return StateFallbackMode
	default:
		return StateAuthenticated
	}
}

// FallbackMode reports whether any endpoint class is marked unreachable.
func (s *Session) FallbackMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.unreachable) > 0
}

// UnreachableClasses lists the marked endpoint classes.
func (s *Session) UnreachableClasses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.unreachable))
	for c := range s.unreachable {
		out = append(out, c)
	}
	return out
}

func (s *Session) beginAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticating {
		return false
	}
	s.authenticating = true
	return true
}

func (s *Session) endAuth() {
	s.mu.Lock()
	s.authenticating = false
	s.mu.Unlock()
}

// snapshot returns the token together with the epoch it belongs to.
func (s *Session) snapshot() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.epoch
}

func (s *Session) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// markUnreachable records class for the session of the given epoch. It
// reports false, marking nothing, when that session has since ended.
func (s *Session) markUnreachable(epoch uint64, class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.unreachable[class] = struct{}{}
	return true
}

func (s *Session) unreachableClass(class string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.unreachable[class]
	return ok
}

// claimFallbackNotice returns true exactly once per session, and never for
// an epoch other than the current one.
func (s *Session) claimFallbackNotice(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.noticeShown {
		return false
	}
	s.noticeShown = true
	return true
}
