package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"charla/internal/infrastructure/realtime"
	call "charla/internal/pkg/call/domain"
	callrepo "charla/internal/pkg/call/persistence/repository/port"
	userrepo "charla/internal/repository/port"
)

// callSession is one in-flight call attempt. All fields are guarded by the
// manager mutex; the timer fires the missed transition when nobody answers.
type callSession struct {
	ID             string
	ConversationID string
	CallerID       string
	CalleeID       string
	Media          call.Media
	Status         call.Status
	CreatedAt      time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	Reason         *string

	timer *time.Timer
}

func (s *callSession) other(userID string) string {
	if userID == s.CallerID {
		return s.CalleeID
	}
	return s.CallerID
}

func (s *callSession) participant(userID string) bool {
	return userID == s.CallerID || userID == s.CalleeID
}

// CallManager owns every in-flight call attempt. Transitions follow
// ringing -> accepted -> ended, with rejected/missed as the alternative
// terminal outcomes, and at most one non-terminal call exists per unordered
// user pair. SDP and ICE payloads pass through untouched.
type CallManager struct {
	mu     sync.Mutex
	calls  map[string]*callSession
	byPair map[string]string // normalized "min|max" pair -> call id

	rooms    *realtime.Rooms
	registry *realtime.Registry
	users    userrepo.UserRepository
	notifier Notifier
	archive  callrepo.CallRepository

	ringTimeout time.Duration
	logger      *log.Logger
}

func NewCallManager(
	rooms *realtime.Rooms,
	registry *realtime.Registry,
	users userrepo.UserRepository,
	notifier Notifier,
	archive callrepo.CallRepository,
	ringTimeout time.Duration,
	logger *log.Logger,
) *CallManager {
	return &CallManager{
		calls:       make(map[string]*callSession),
		byPair:      make(map[string]string),
		rooms:       rooms,
		registry:    registry,
		users:       users,
		notifier:    notifier,
		archive:     archive,
		ringTimeout: ringTimeout,
		logger:      logger,
	}
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// HandleInit starts a new call attempt: allocates the call id, rings every
// device of the callee, echoes the ringing status to the caller and arms the
// unanswered timeout.
func (m *CallManager) HandleInit(ctx context.Context, conn *realtime.Connection, p callInitPayload) error {
	if p.CalleeID == "" {
		return NewValidationError("calleeId is required", "")
	}
	if p.CalleeID == conn.UserID {
		return NewValidationError("cannot call yourself", "")
	}
	media := call.Media(p.Media)
	if !media.Valid() {
		return NewValidationError("media must be audio or video", "")
	}

	now := time.Now().UTC()
	s := &callSession{
		ID:             uuid.NewString(),
		ConversationID: p.ConversationID,
		CallerID:       conn.UserID,
		CalleeID:       p.CalleeID,
		Media:          media,
		Status:         call.StatusRinging,
		CreatedAt:      now,
	}

	key := pairKey(conn.UserID, p.CalleeID)
	m.mu.Lock()
	if existing, busy := m.byPair[key]; busy {
		m.mu.Unlock()
		return NewConflictError("a call between these users is already in progress", existing)
	}
	m.calls[s.ID] = s
	m.byPair[key] = s.ID
	s.timer = time.AfterFunc(m.ringTimeout, func() { m.ringTimedOut(s.ID) })
	m.mu.Unlock()

	m.rooms.Join(CallRoom(s.ID), conn)

	caller := m.lookupCaller(ctx, conn.UserID)
	if frame, err := encodeFrame(EventCallRinging, callRingingPayload{
		CallID:         s.ID,
		FromUser:       caller,
		Media:          p.Media,
		ConversationID: p.ConversationID,
	}); err == nil {
		m.rooms.Emit(UserRoom(p.CalleeID), frame, "")
	}

	if frame, err := encodeFrame(EventCallStatus, callStatusPayload{
		CallID: s.ID,
		Status: string(call.StatusRinging),
	}); err == nil {
		_ = conn.Send(frame)
	}

	if m.notifier != nil && m.registry.CountOf(p.CalleeID) == 0 {
		if err := m.notifier.NotifyCall(ctx, p.CalleeID, s.ID, caller.DisplayName, p.Media); err != nil {
			m.logger.Printf("call push enqueue for %s failed: %v", p.CalleeID, err)
		}
	}
	return nil
}

// HandleAccept moves a ringing call to accepted. Only the callee may accept;
// when two devices race, exactly one wins and the rest observe a conflict.
func (m *CallManager) HandleAccept(conn *realtime.Connection, callID string) error {
	now := time.Now().UTC()

	m.mu.Lock()
	s, ok := m.calls[callID]
	if !ok {
		m.mu.Unlock()
		return NewNotFoundError("unknown call", callID)
	}
	if conn.UserID != s.CalleeID {
		m.mu.Unlock()
		return NewForbiddenError("only the callee can accept", callID)
	}
	if s.Status != call.StatusRinging {
		m.mu.Unlock()
		return NewConflictError("call is not ringing", callID)
	}
	s.timer.Stop()
	s.Status = call.StatusAccepted
	s.StartedAt = &now
	snap := *s
	m.mu.Unlock()

	m.rooms.Join(CallRoom(callID), conn)
	m.emitStatus(snap)
	return nil
}

// HandleReject lets the callee decline a ringing call.
func (m *CallManager) HandleReject(conn *realtime.Connection, p callActionPayload) error {
	m.mu.Lock()
	s, ok := m.calls[p.CallID]
	if !ok {
		m.mu.Unlock()
		return NewNotFoundError("unknown call", p.CallID)
	}
	if conn.UserID != s.CalleeID {
		m.mu.Unlock()
		return NewForbiddenError("only the callee can reject", p.CallID)
	}
	if s.Status != call.StatusRinging {
		m.mu.Unlock()
		return NewConflictError("call is not ringing", p.CallID)
	}
	m.finishLocked(s, call.StatusRejected, p.Reason)
	return nil
}

// HandleEnd terminates a ringing or accepted call. Either participant may
// end; a caller hanging up while still ringing cancels the attempt.
func (m *CallManager) HandleEnd(conn *realtime.Connection, p callActionPayload) error {
	m.mu.Lock()
	s, ok := m.calls[p.CallID]
	if !ok {
		m.mu.Unlock()
		return NewNotFoundError("unknown call", p.CallID)
	}
	if !s.participant(conn.UserID) {
		m.mu.Unlock()
		return NewForbiddenError("not a participant of this call", p.CallID)
	}
	if s.Status.Terminal() {
		m.mu.Unlock()
		return NewConflictError("call already over", p.CallID)
	}
	m.finishLocked(s, call.StatusEnded, p.Reason)
	return nil
}

// RelaySignal forwards an SDP offer/answer or ICE candidate to the peer
// without inspecting the payload beyond the call id. While the call is still
// ringing the peer has not joined the call room yet, so the frame goes to
// their user room instead.
func (m *CallManager) RelaySignal(conn *realtime.Connection, event string, raw json.RawMessage) error {
	var ref signalRef
	if err := json.Unmarshal(raw, &ref); err != nil || ref.CallID == "" {
		return NewValidationError("callId is required", "")
	}

	m.mu.Lock()
	s, ok := m.calls[ref.CallID]
	if !ok {
		m.mu.Unlock()
		return NewNotFoundError("unknown call", ref.CallID)
	}
	if !s.participant(conn.UserID) {
		m.mu.Unlock()
		return NewForbiddenError("not a participant of this call", ref.CallID)
	}
	status := s.Status
	peer := s.other(conn.UserID)
	m.mu.Unlock()

	if status.Terminal() {
		return NewConflictError("call already over", ref.CallID)
	}

	frame, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		return NewValidationError("malformed signal payload", ref.CallID)
	}
	if status == call.StatusRinging {
		m.rooms.Emit(UserRoom(peer), frame, "")
		return nil
	}
	m.rooms.Emit(CallRoom(ref.CallID), frame, conn.ID)
	return nil
}

// ringTimedOut fires when nobody answered within the ring timeout. The
// missed transition is emitted at most once; an accept or reject that beat
// the timer wins.
func (m *CallManager) ringTimedOut(callID string) {
	m.mu.Lock()
	s, ok := m.calls[callID]
	if !ok || s.Status != call.StatusRinging {
		m.mu.Unlock()
		return
	}
	m.finishLocked(s, call.StatusMissed, nil)
}

// EndAllFor terminates every non-terminal call the user participates in.
// Called when the user's last connection drops.
func (m *CallManager) EndAllFor(userID string, reason string) {
	m.mu.Lock()
	var affected []*callSession
	for _, s := range m.calls {
		if s.participant(userID) && !s.Status.Terminal() {
			affected = append(affected, s)
		}
	}
	var snaps []callSession
	for _, s := range affected {
		snaps = append(snaps, m.terminateLocked(s, call.StatusEnded, &reason))
	}
	m.mu.Unlock()

	for _, snap := range snaps {
		m.settle(snap)
	}
}

// finishLocked completes a single terminal transition, releases the lock and
// fans the outcome out. The caller must hold m.mu; it is unlocked on return.
func (m *CallManager) finishLocked(s *callSession, to call.Status, reason *string) {
	snap := m.terminateLocked(s, to, reason)
	m.mu.Unlock()
	m.settle(snap)
}

// terminateLocked applies the terminal transition and removes the session
// from the indexes. m.mu must be held. Fan-out happens after unlock via
// settle, so a late timer firing sees the session gone and does nothing.
func (m *CallManager) terminateLocked(s *callSession, to call.Status, reason *string) callSession {
	now := time.Now().UTC()
	s.timer.Stop()
	s.Status = to
	s.EndedAt = &now
	s.Reason = reason

	delete(m.calls, s.ID)
	delete(m.byPair, pairKey(s.CallerID, s.CalleeID))
	return *s
}

func (m *CallManager) settle(snap callSession) {
	m.rooms.Release(CallRoom(snap.ID))
	m.emitStatus(snap)
	go m.archiveRecord(snap)
}

// emitStatus fans the current call state out to every device of both
// participants, so ringing screens on other devices dismiss too.
func (m *CallManager) emitStatus(s callSession) {
	p := callStatusPayload{
		CallID:    s.ID,
		Status:    string(s.Status),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Reason:    s.Reason,
	}
	if s.Status == call.StatusEnded {
		d := 0
		if s.StartedAt != nil && s.EndedAt != nil {
			d = int(s.EndedAt.Sub(*s.StartedAt) / time.Second)
		}
		p.Duration = &d
	}
	frame, err := encodeFrame(EventCallStatus, p)
	if err != nil {
		return
	}
	m.rooms.Emit(UserRoom(s.CallerID), frame, "")
	m.rooms.Emit(UserRoom(s.CalleeID), frame, "")
}

func (m *CallManager) archiveRecord(s callSession) {
	if m.archive == nil || !s.Status.Terminal() {
		return
	}
	rec := call.Record{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		CallerID:       s.CallerID,
		CalleeID:       s.CalleeID,
		Media:          s.Media,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		Reason:         s.Reason,
		CreatedAt:      s.CreatedAt,
	}
	if s.StartedAt != nil && s.EndedAt != nil {
		rec.Duration = int(s.EndedAt.Sub(*s.StartedAt) / time.Second)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.archive.SaveRecord(ctx, rec); err != nil {
		m.logger.Printf("archiving call %s failed: %v", s.ID, err)
	}
}

// Active reports whether the call exists and is not terminal yet.
func (m *CallManager) Active(callID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.calls[callID]
	return ok && !s.Status.Terminal()
}

func (m *CallManager) lookupCaller(ctx context.Context, userID string) callerInfo {
	info := callerInfo{DisplayName: userID}
	if m.users == nil {
		return info
	}
	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return info
	}
	if u.DisplayName != "" {
		info.DisplayName = u.DisplayName
	}
	info.PhotoURL = u.PhotoURL
	return info
}
