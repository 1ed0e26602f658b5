package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultEndDelay is how long an ended room stays visible before it is cleared
const DefaultEndDelay = time.Second

// Option configures a Session
type Option func(*Session)

// WithEndDelay sets how long an ended room stays visible before it is cleared
func WithEndDelay(d time.Duration) Option {
	return func(s *Session) {
		s.endDelay = d
	}
}

// WithLogger sets the logger used for feed handling
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session holds the room the local user is in and keeps it in step with the
// backend. All state is owned by one goroutine: operations and feed callbacks
// post closures to it and they are applied in the order they arrive.
type Session struct {
	backend  Backend
	endDelay time.Duration
	logger   *zap.Logger

	actions chan func()
	quit    chan struct{}
	updates chan struct{}
	loading atomic.Bool
	closing sync.Once

	// Owned by the loop goroutine
	room    *Room
	user    string
	gen     uint64
	subs    []Subscription
	deleted map[string]struct{}
	cleanup *time.Timer
}

// New creates a session and starts its loop. Call Close to stop it.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		endDelay: DefaultEndDelay,
		logger:   zap.NewNop(),
		actions:  make(chan func()),
		quit:     make(chan struct{}),
		updates:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.actions:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish
func (s *Session) do(fn func()) error {
	done := make(chan struct{})
	select {
	case s.actions <- func() {
		defer close(done)
		fn()
	}:
	case <-s.quit:
		return ErrClosed
	}
	<-done
	return nil
}

// post queues fn on the loop without waiting for it to run
func (s *Session) post(fn func()) {
	select {
	case s.actions <- fn:
	case <-s.quit:
	}
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

//================================================================================
// Accessors
//================================================================================

// Room returns a copy of the current room, or nil when there is none
func (s *Session) Room() *Room {
	var room *Room
	_ = s.do(func() {
		room = s.room.clone()
	})
	return room
}

// User returns the local nickname, empty when there is no room
func (s *Session) User() string {
	var user string
	_ = s.do(func() {
		user = s.user
	})
	return user
}

// Loading reports whether a create or join is in flight
func (s *Session) Loading() bool {
	return s.loading.Load()
}

// Updates signals after every change to the room. Signals are coalesced.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

//================================================================================
// Operations
//================================================================================

// Create makes a new room with the local user as its creator and returns the
// room code to share
func (s *Session) Create(ctx context.Context, nickname, password string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	password = strings.TrimSpace(password)
	if err := validateInput(&createInput{Nickname: nickname, Password: password}); err != nil {
		return "", err
	}

	s.loading.Store(true)
	defer s.loading.Store(false)

	info, err := s.backend.CreateRoom(ctx, nickname, password)
	if err != nil {
		return "", err
	}

	gen, err := s.enter(info, nickname)
	if err != nil {
		return "", err
	}
	s.subscribe(gen, info.ID)
	return info.Code, nil
}

// Join enters an existing active room
func (s *Session) Join(ctx context.Context, code, password, nickname string) error {
	code = NormalizeCode(code)
	password = strings.TrimSpace(password)
	nickname = strings.TrimSpace(nickname)
	if err := validateInput(&joinInput{Code: code, Password: password, Nickname: nickname}); err != nil {
		return err
	}

	s.loading.Store(true)
	defer s.loading.Store(false)

	info, err := s.backend.JoinRoom(ctx, code, password, nickname)
	if err != nil {
		return err
	}

	gen, err := s.enter(info, nickname)
	if err != nil {
		return err
	}

	// Subscribe before loading the history so nothing sent in between is lost
	s.subscribe(gen, info.ID)

	history, err := s.backend.ListMessages(ctx, info.ID)
	if err != nil {
		s.logger.Warn("failed to load message history", zap.String("room_id", info.ID), zap.Error(err))
		return nil
	}
	return s.do(func() {
		if s.gen != gen {
			return
		}
		for _, msg := range history {
			s.addMessage(msg)
		}
		s.notify()
	})
}

// Send posts a message to the room. The message is appended once the backend
// has stored it.
func (s *Session) Send(ctx context.Context, text string) error {
	var (
		roomID, user string
		active       bool
		gen          uint64
	)
	if err := s.do(func() {
		if s.room != nil {
			roomID, user, active, gen = s.room.ID, s.user, s.room.IsActive, s.gen
		}
	}); err != nil {
		return err
	}
	if roomID == "" || user == "" {
		return ErrNoActiveRoom
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !active {
		return ErrSessionEnded
	}

	msg, err := s.backend.SendMessage(ctx, roomID, user, text)
	if err != nil {
		return err
	}
	return s.do(func() {
		if s.gen == gen && s.addMessage(*msg) {
			s.notify()
		}
	})
}

// Delete removes one of the local user's messages. The message disappears
// right away and comes back if the backend refuses.
func (s *Session) Delete(ctx context.Context, messageID string) error {
	var (
		roomID, user string
		gen          uint64
		removed      *Message
		index        int
		opErr        error
	)
	if err := s.do(func() {
		if s.room == nil || s.user == "" {
			opErr = ErrNoActiveRoom
			return
		}
		roomID, user, gen = s.room.ID, s.user, s.gen
		index = s.room.indexOf(messageID)
		if index < 0 {
			return
		}
		msg := s.room.Messages[index]
		if msg.Sender != s.user {
			opErr = ErrNotMessageSender
			return
		}
		removed = &msg
		s.removeMessage(index)
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	err := s.backend.DeleteMessage(ctx, roomID, messageID, user)
	if err == nil || removed == nil {
		return err
	}

	_ = s.do(func() {
		if s.gen != gen || s.room.indexOf(removed.ID) >= 0 {
			return
		}
		delete(s.deleted, removed.ID)
		if index > len(s.room.Messages) {
			index = len(s.room.Messages)
		}
		s.room.Messages = append(s.room.Messages[:index], append([]Message{*removed}, s.room.Messages[index:]...)...)
		s.notify()
	})
	return err
}

// End closes the room for everyone. Only the creator can end it. The room
// stays visible as ended for a moment and is then cleared.
func (s *Session) End(ctx context.Context) error {
	var (
		roomID string
		gen    uint64
		opErr  error
	)
	if err := s.do(func() {
		switch {
		case s.room == nil || s.user == "":
			opErr = ErrNoActiveRoom
		case s.user != s.room.Creator:
			opErr = ErrNotCreator
		case !s.room.IsActive:
			opErr = ErrSessionEnded
		default:
			roomID, gen = s.room.ID, s.gen
		}
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	if err := s.backend.EndSession(ctx, roomID); err != nil {
		return err
	}
	return s.do(func() {
		if s.gen != gen {
			return
		}
		s.markEnded()
		s.scheduleCleanup(gen)
	})
}

// Leave releases the feeds and forgets the room. It is safe to call when there
// is no room.
func (s *Session) Leave() {
	_ = s.do(s.clear)
}

// Close leaves the room and stops the loop
func (s *Session) Close() {
	s.closing.Do(func() {
		s.Leave()
		close(s.quit)
	})
}

//================================================================================
// Loop-owned helpers
//================================================================================

// enter replaces the current room and returns the new generation
func (s *Session) enter(info *RoomInfo, nickname string) (uint64, error) {
	var gen uint64
	err := s.do(func() {
		s.clear()
		s.room = &Room{
			ID:       info.ID,
			Code:     info.Code,
			Creator:  info.Creator,
			IsActive: info.IsActive,
			Members:  []string{nickname},
		}
		s.user = nickname
		s.deleted = map[string]struct{}{}
		gen = s.gen
		s.notify()
	})
	return gen, err
}

// subscribe opens the three feeds for the room. Feeds are opened outside the
// loop and dropped if the room changed in the meantime.
func (s *Session) subscribe(gen uint64, roomID string) {
	var subs []Subscription

	msgSub, err := s.backend.SubscribeMessages(roomID, func(msg Message) {
		s.post(func() { s.onMessage(gen, msg) })
	})
	s.keep(&subs, msgSub, err, "messages")

	statusSub, err := s.backend.SubscribeRoomStatus(roomID, func(info RoomInfo) {
		s.post(func() { s.onRoomStatus(gen, info) })
	})
	s.keep(&subs, statusSub, err, "room status")

	delSub, err := s.backend.SubscribeDeletions(roomID, func(messageID string) {
		s.post(func() { s.onDeletion(gen, messageID) })
	})
	s.keep(&subs, delSub, err, "deletions")

	stale := false
	if err := s.do(func() {
		if s.gen != gen {
			stale = true
			return
		}
		s.subs = append(s.subs, subs...)
	}); err != nil {
		stale = true
	}
	if stale {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}

func (s *Session) keep(subs *[]Subscription, sub Subscription, err error, feed string) {
	if err != nil {
		s.logger.Warn("failed to subscribe", zap.String("feed", feed), zap.Error(err))
		return
	}
	*subs = append(*subs, sub)
}

func (s *Session) onMessage(gen uint64, msg Message) {
	if s.gen != gen || s.room == nil {
		s.logger.Debug("dropped message event", zap.String("message_id", msg.ID))
		return
	}
	if s.addMessage(msg) {
		s.notify()
	}
}

func (s *Session) onRoomStatus(gen uint64, info RoomInfo) {
	if s.gen != gen || s.room == nil {
		s.logger.Debug("dropped room event", zap.String("room_id", info.ID))
		return
	}
	if !info.IsActive {
		s.markEnded()
	}
}

func (s *Session) onDeletion(gen uint64, messageID string) {
	if s.gen != gen || s.room == nil {
		s.logger.Debug("dropped delete event", zap.String("message_id", messageID))
		return
	}
	if i := s.room.indexOf(messageID); i >= 0 {
		s.removeMessage(i)
	} else {
		s.deleted[messageID] = struct{}{}
	}
}

// removeMessage drops the message at index i and remembers it was deleted, so
// a late insert event cannot bring it back
func (s *Session) removeMessage(i int) {
	s.deleted[s.room.Messages[i].ID] = struct{}{}
	s.room.Messages = append(s.room.Messages[:i], s.room.Messages[i+1:]...)
	s.notify()
}

// addMessage appends msg unless a message with the same ID is already there
// or was deleted
func (s *Session) addMessage(msg Message) bool {
	if _, gone := s.deleted[msg.ID]; gone {
		return false
	}
	if s.room.indexOf(msg.ID) >= 0 {
		return false
	}
	s.room.Messages = append(s.room.Messages, msg)
	if msg.Sender != "" && !s.room.hasMember(msg.Sender) {
		s.room.Members = append(s.room.Members, msg.Sender)
	}
	return true
}

func (s *Session) markEnded() {
	if !s.room.IsActive {
		return
	}
	s.room.IsActive = false
	s.notify()
}

func (s *Session) scheduleCleanup(gen uint64) {
	if s.cleanup != nil {
		return
	}
	s.cleanup = time.AfterFunc(s.endDelay, func() {
		s.post(func() {
			if s.gen == gen {
				s.clear()
			}
		})
	})
}

// clear drops the room and releases every feed. Feeds are released off the
// loop since a feed callback may be waiting to post to it.
func (s *Session) clear() {
	if len(s.subs) > 0 {
		go func(subs []Subscription) {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}(s.subs)
	}
	s.subs = nil
	if s.cleanup != nil {
		s.cleanup.Stop()
		s.cleanup = nil
	}
	hadRoom := s.room != nil
	s.room = nil
	s.user = ""
	s.deleted = nil
	s.gen++
	if hadRoom {
		s.notify()
	}
}
