package realtime

import (
	"strings"
	"sync"
)

// Rooms tracks membership of connections in logical fan-out groups: a user's
// devices ("user:<id>"), a conversation ("conv:<id>") or a call ("call:<id>").
// Emit iterates a snapshot of membership so concurrent join/leave during
// fan-out is safe, and delivery is best-effort per member.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Connection // roomID -> connectionID -> connection
	byConn map[string]map[string]struct{}    // connectionID -> set of roomIDs
}

// NewRooms constructs an empty room table.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]*Connection),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room.
func (r *Rooms) Join(roomID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[roomID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[roomID] = room
	}
	room[conn.ID] = conn

	joined := r.byConn[conn.ID]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byConn[conn.ID] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave removes the connection from the room.
func (r *Rooms) Leave(roomID string, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, connectionID)
}

// LeaveAll clears every membership of the connection. Called on disconnect so
// no orphan subscriptions survive the socket.
func (r *Rooms) LeaveAll(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.byConn[connectionID] {
		r.leaveLocked(roomID, connectionID)
	}
	delete(r.byConn, connectionID)
}

// Release drops the room and all its memberships at once (call teardown).
func (r *Rooms) Release(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.rooms[roomID] {
		if joined := r.byConn[connID]; joined != nil {
			delete(joined, roomID)
		}
	}
	delete(r.rooms, roomID)
}

// MembersOf returns a snapshot of the room's connections.
func (r *Rooms) MembersOf(roomID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[roomID]
	out := make([]*Connection, 0, len(room))
	for _, conn := range room {
		out = append(out, conn)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms the connection has joined, filtered
// by prefix when prefix is non-empty.
func (r *Rooms) RoomsOf(connectionID string, prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for roomID := range r.byConn[connectionID] {
		if prefix == "" || strings.HasPrefix(roomID, prefix) {
			out = append(out, roomID)
		}
	}
	return out
}

// UserRooms returns every room with prefix that currently contains at least one
// connection of the user.
func (r *Rooms) UserRooms(userID string, prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for roomID, room := range r.rooms {
		if prefix != "" && !strings.HasPrefix(roomID, prefix) {
			continue
		}
		for _, conn := range room {
			if conn.UserID == userID {
				out = append(out, roomID)
				break
			}
		}
	}
	return out
}

// Emit delivers payload to every member of the room except the connection with
// id excludeConn (pass "" to exclude no one). A failed delivery to one member
// never blocks or fails delivery to the rest. Returns the delivered count.
func (r *Rooms) Emit(roomID string, payload []byte, excludeConn string) int {
	delivered := 0
	for _, conn := range r.MembersOf(roomID) {
		if excludeConn != "" && conn.ID == excludeConn {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// EmitExcludingUser delivers payload to every member of the room that does not
// belong to excludeUser. Used for peer-directed events such as SDP relay.
func (r *Rooms) EmitExcludingUser(roomID string, payload []byte, excludeUser string) int {
	delivered := 0
	for _, conn := range r.MembersOf(roomID) {
		if excludeUser != "" && conn.UserID == excludeUser {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (r *Rooms) leaveLocked(roomID string, connectionID string) {
	room := r.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connectionID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	if joined := r.byConn[connectionID]; joined != nil {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.byConn, connectionID)
		}
	}
}
