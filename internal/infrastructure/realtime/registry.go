package realtime

import (
	"errors"
	"sync"
)

// ErrDuplicateConnection is returned when a connection id is registered twice.
var ErrDuplicateConnection = errors.New("realtime: connection already registered")

// ChangeHook is invoked synchronously inside Register/Unregister, after the
// tables are updated and before the call returns, with the user's new live
// connection count. Presence derives online/offline from it. The hook runs
// outside the registry lock, so it may call back into the registry.
type ChangeHook func(userID string, connections int)

// Registry tracks which live connections belong to which user. A user may own
// any number of connections (one per device); a connection belongs to exactly
// one user for its whole lifetime.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection            // connectionID -> connection
	users map[string]map[string]*Connection // userID -> connectionID -> connection

	onChange ChangeHook
}

// NewRegistry constructs an empty Registry. hook may be nil.
func NewRegistry(hook ChangeHook) *Registry {
	return &Registry{
		conns:    make(map[string]*Connection),
		users:    make(map[string]map[string]*Connection),
		onChange: hook,
	}
}

// Register adds the connection to the tables and notifies the change hook.
func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	if _, ok := r.conns[conn.ID]; ok {
		r.mu.Unlock()
		return ErrDuplicateConnection
	}
	r.conns[conn.ID] = conn
	devices := r.users[conn.UserID]
	if devices == nil {
		devices = make(map[string]*Connection)
		r.users[conn.UserID] = devices
	}
	devices[conn.ID] = conn
	total := len(devices)
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(conn.UserID, total)
	}
	return nil
}

// Unregister removes the connection if it is tracked and returns the owning
// user id plus whether this was the user's last live connection. Unknown ids
// are a safe no-op.
func (r *Registry) Unregister(connectionID string) (userID string, last bool) {
	r.mu.Lock()
	conn, ok := r.conns[connectionID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.conns, connectionID)
	devices := r.users[conn.UserID]
	delete(devices, connectionID)
	total := len(devices)
	if total == 0 {
		delete(r.users, conn.UserID)
	}
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(conn.UserID, total)
	}
	return conn.UserID, total == 0
}

// ConnectionsOf returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsOf(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	devices := r.users[userID]
	out := make([]*Connection, 0, len(devices))
	for _, conn := range devices {
		out = append(out, conn)
	}
	return out
}

// CountOf returns how many live connections the user currently owns.
func (r *Registry) CountOf(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// UserOf resolves a connection id to its owning user.
func (r *Registry) UserOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connectionID]
	if !ok {
		return "", false
	}
	return conn.UserID, true
}
