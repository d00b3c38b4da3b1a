package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	messaging "charla/internal/pkg/messaging/domain"
	userrepo "charla/internal/repository/port"
)

// fakeSocket is an in-memory Socket. Inbound frames are fed through inject;
// everything the hub writes is recorded for polling assertions.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
	readCh chan []byte
	once   sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{readCh: make(chan []byte, 16)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	msg, ok := <-s.readCh
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, msg, nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	s.mu.Lock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.frames = append(s.frames, cp)
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) WriteControl(int, []byte, time.Time) error { return nil }
func (s *fakeSocket) SetWriteDeadline(time.Time) error          { return nil }

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.readCh) })
	return nil
}

func (s *fakeSocket) inject(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	s.readCh <- frame
}

// decoded returns every recorded frame with the given event name.
func (s *fakeSocket) decoded(event string) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Frame
	for _, raw := range s.frames {
		var f Frame
		if json.Unmarshal(raw, &f) == nil && f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

// waitFrame polls until at least n frames of the event arrived and returns
// the n-th one.
func waitFrame(t *testing.T, s *fakeSocket, event string, n int) Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frames := s.decoded(event); len(frames) >= n {
			return frames[n-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for frame %d of %q", n, event)
	return Frame{}
}

// expectNoFrame asserts the event does not show up within the window.
func expectNoFrame(t *testing.T, s *fakeSocket, event string, window time.Duration) {
	t.Helper()
	time.Sleep(window)
	if frames := s.decoded(event); len(frames) > 0 {
		t.Fatalf("unexpected %q frame: %s", event, frames[0].Data)
	}
}

func decodeInto(t *testing.T, f Frame, v any) {
	t.Helper()
	if err := json.Unmarshal(f.Data, v); err != nil {
		t.Fatalf("decode %q payload: %v", f.Event, err)
	}
}

// ---- fake collaborators ----

// memMessageRepo keeps conversations and messages in memory and hands out
// sequential ids.
type memMessageRepo struct {
	mu      sync.Mutex
	members map[string][]string          // conversation -> user ids
	status  map[string]messaging.MessageStatus // message id -> status
	nextID  int
	saveErr error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{
		members: make(map[string][]string),
		status:  make(map[string]messaging.MessageStatus),
	}
}

func (r *memMessageRepo) addConversation(id string, members ...string) {
	r.mu.Lock()
	r.members[id] = members
	r.mu.Unlock()
}

func (r *memMessageRepo) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[conversationID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMessageRepo) MemberIDs(_ context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.members[conversationID]...), nil
}

func (r *memMessageRepo) SaveMessage(_ context.Context, m messaging.Message) (string, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return "", time.Time{}, r.saveErr
	}
	r.nextID++
	id := fmt.Sprintf("m%d", r.nextID)
	r.status[id] = messaging.StatusSent
	return id, time.Now().UTC(), nil
}

func (r *memMessageRepo) AdvanceStatus(_ context.Context, _ string, messageIDs []string, to messaging.MessageStatus) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var advanced []string
	for _, id := range messageIDs {
		cur, ok := r.status[id]
		if !ok {
			continue
		}
		if to.Rank() > cur.Rank() {
			r.status[id] = to
			advanced = append(advanced, id)
		}
	}
	return advanced, nil
}

func (r *memMessageRepo) ResetUnread(context.Context, string, string) error { return nil }

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]userrepo.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]userrepo.User)}
}

func (r *memUserRepo) Upsert(_ context.Context, u userrepo.User) error {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*userrepo.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, userrepo.ErrUserNotFound
	}
	return &u, nil
}

// stubVerifier accepts any non-empty credential as the user id itself.
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", errors.New("empty credential")
	}
	return credential, nil
}

// ---- harness ----

type harness struct {
	hub   *Hub
	repo  *memMessageRepo
	wg    sync.WaitGroup
	mu    sync.Mutex
	socks []*fakeSocket
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	repo := newMemMessageRepo()
	h := New(cfg, Deps{
		Messages: repo,
		Users:    newMemUserRepo(),
		Verifier: stubVerifier{},
		Logger:   log.New(io.Discard, "", 0),
	})
	return &harness{hub: h, repo: repo}
}

func defaultConfig() Config {
	return Config{RingTimeout: time.Second, TypingTTL: time.Second}
}

// connect opens a session for the user and waits for the connected frame.
func (h *harness) connect(t *testing.T, userID string) *fakeSocket {
	t.Helper()
	sock := newFakeSocket()
	h.mu.Lock()
	h.socks = append(h.socks, sock)
	h.mu.Unlock()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_ = h.hub.Gateway.HandleConnection(context.Background(), sock, userID)
	}()
	waitFrame(t, sock, EventConnected, 1)
	return sock
}

// join admits the user's connection to a conversation room.
func (h *harness) join(t *testing.T, sock *fakeSocket, conversationID string) {
	t.Helper()
	sock.inject(t, EventJoin, joinPayload{ConversationID: conversationID})
	waitFrame(t, sock, EventJoined, 1)
}

// shutdown closes every open session and waits for the gateways to return.
func (h *harness) shutdown(t *testing.T) {
	t.Helper()
	h.mu.Lock()
	for _, s := range h.socks {
		_ = s.Close()
	}
	h.mu.Unlock()
	done := make(chan struct{})
	go func() { h.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sessions did not shut down")
	}
}
