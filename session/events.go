package session

// TokenUpdate is broadcast after every token mutation. Token is empty once
// the session has been cleared.
type TokenUpdate struct {
	Event string
	Token string
}

type Listener func(TokenUpdate)

// Subscribe registers l for token updates and returns a function that
// removes it. Listeners are called synchronously, outside the manager's
// locks, in no particular order.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = l
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

func (m *Manager) dispatch(token string) {
	m.listenersMu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.RUnlock()

	update := TokenUpdate{Event: m.cfg.GetEventName(), Token: token}
	for _, l := range listeners {
		l(update)
	}
}
