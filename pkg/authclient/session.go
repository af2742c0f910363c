package authclient

import "sync"

// SessionState is a snapshot of what the client knows about the signed-in account.
type SessionState struct {
	LoggedIn bool
	User     *User
	UserData *UserData
}

// Session holds the client's signed-in state. Create one per client root and share it; every
// change is pushed to subscribers in subscription order, and changes reach subscribers in the
// order they were applied. Subscribers may read the session but must not change it.
type Session struct {
	// notifyMu serializes apply-then-notify so deliveries never overtake each other.
	notifyMu sync.Mutex

	mu     sync.RWMutex
	state  SessionState
	nextID int
	subs   map[int]func(SessionState)
	order  []int
}

func NewSession() *Session {
	return &Session{subs: map[int]func(SessionState){}}
}

func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

func (s *Session) UserData() *UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserData
}

func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) SetLoggedIn(loggedIn bool) {
	s.update(func(st *SessionState) {
		st.LoggedIn = loggedIn
		if !loggedIn {
			st.User = nil
			st.UserData = nil
		}
	})
}

func (s *Session) SetUserData(data *UserData) {
	s.update(func(st *SessionState) { st.UserData = data })
}

func (s *Session) Reset() {
	s.update(func(st *SessionState) { *st = SessionState{} })
}

func (s *Session) signedIn(user *User) {
	s.update(func(st *SessionState) {
		st.LoggedIn = true
		st.User = user
	})
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (s *Session) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// update applies fn under the state lock and notifies outside it, so subscribers may read the
// session.
func (s *Session) update(fn func(*SessionState)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	subs := make([]func(SessionState), 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}
