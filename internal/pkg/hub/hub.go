package hub

import (
	"log"
	"os"
	"time"

	cacheport "charla/internal/infrastructure/cache/port"
	"charla/internal/infrastructure/realtime"
	callrepo "charla/internal/pkg/call/persistence/repository/port"
	"charla/internal/pkg/messaging/application/usecase"
	msgrepo "charla/internal/pkg/messaging/persistence/repository/port"
	userrepo "charla/internal/repository/port"
)

// Config holds the tunable timings of the hub.
type Config struct {
	RingTimeout   time.Duration // unanswered call -> missed
	TypingTTL     time.Duration // typing indicator idle expiry
	PresenceGrace time.Duration // delay before offline is published; 0 = immediate
}

// ConfigFromEnv reads RING_TIMEOUT, TYPING_TTL and PRESENCE_GRACE as Go
// durations ("45s", "1m30s"), falling back to the defaults when unset or
// malformed.
func ConfigFromEnv() Config {
	return Config{
		RingTimeout:   durationEnv("RING_TIMEOUT", 45*time.Second),
		TypingTTL:     durationEnv("TYPING_TTL", 10*time.Second),
		PresenceGrace: durationEnv("PRESENCE_GRACE", 0),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Deps are the external collaborators the hub is wired with.
type Deps struct {
	Messages msgrepo.MessageRepository
	Calls    callrepo.CallRepository
	Users    userrepo.UserRepository
	Cache    cacheport.Cache
	Notifier Notifier
	Verifier TokenVerifier
	Logger   *log.Logger
}

// Hub bundles the realtime session state for one process: the connection
// registry, room router, presence and typing trackers, message relay and
// call manager, fronted by the websocket gateway.
type Hub struct {
	Gateway  *Gateway
	Registry *realtime.Registry
	Rooms    *realtime.Rooms
	Presence *PresenceTracker
	Relay    *Relay
	Calls    *CallManager
}

// New wires the hub. Presence transitions fan out to the user's own room and
// to every conversation room the user is currently joined to; the scan runs
// before teardown removes the memberships, so the offline event still
// reaches its conversations.
func New(cfg Config, deps Deps) *Hub {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	rooms := realtime.NewRooms()

	publisher := func(userID string, online bool, lastSeen time.Time) {
		frame, err := encodeFrame(EventPresenceUpdate, presenceUpdatePayload{
			UserID:   userID,
			Online:   online,
			LastSeen: lastSeen,
		})
		if err != nil {
			return
		}
		rooms.Emit(UserRoom(userID), frame, "")
		for _, room := range rooms.UserRooms(userID, "conv:") {
			rooms.EmitExcludingUser(room, frame, userID)
		}
	}

	tracker := NewPresenceTracker(cfg.PresenceGrace, publisher, deps.Cache, logger)
	registry := realtime.NewRegistry(tracker.OnRegistryChange)

	typing := NewTypingTracker(cfg.TypingTTL, func(conversationID, userID string) {
		frame, err := encodeFrame(EventTypingUpdate, typingUpdatePayload{
			ConversationID: conversationID,
			UserID:         userID,
			IsTyping:       false,
		})
		if err != nil {
			return
		}
		rooms.Emit(ConversationRoom(conversationID), frame, "")
	})

	relay := NewRelay(
		rooms,
		registry,
		usecase.NewSendMessageUseCase(deps.Messages),
		usecase.NewAckMessagesUseCase(deps.Messages),
		usecase.NewAuthorizeJoinUseCase(deps.Messages),
		typing,
		deps.Users,
		deps.Notifier,
		logger,
	)

	calls := NewCallManager(rooms, registry, deps.Users, deps.Notifier, deps.Calls, cfg.RingTimeout, logger)

	gateway := NewGateway(registry, rooms, relay, calls, deps.Verifier, logger)

	return &Hub{
		Gateway:  gateway,
		Registry: registry,
		Rooms:    rooms,
		Presence: tracker,
		Relay:    relay,
		Calls:    calls,
	}
}
