package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/schema"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const (
	logPrefix      = "chat"
	publishTimeout = 5 * time.Second
	sessionBufSize = 64
)

var (
	ErrNotMatched       = fmt.Errorf("users are not matched")
	ErrEmptyMessage     = fmt.Errorf("message is empty")
	ErrMessageTooLong   = fmt.Errorf("message is too long")
	ErrIdentityMismatch = fmt.Errorf("user id does not match the session")
)

// Config of the chat. A zero HistoryLimit returns the whole history of a
// pair.
type Config struct {
	MessageLimit int
	HistoryLimit int64
}

func DefaultConfig() Config {
	return Config{
		MessageLimit: 1000,
	}
}

// Hub persists chat messages and pushes them to the receiver's topic
type Hub struct {
	gate     *Gate
	messages store.MessageStore
	broker   messaging.Broker
	config   Config

	sessionGauge tally.Gauge
	sent         tally.Counter
	rejected     tally.Counter

	mu       sync.Mutex
	sessions int64
}

func NewHub(gate *Gate, messages store.MessageStore, broker messaging.Broker, config Config, scope tally.Scope) *Hub {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Hub{
		gate:         gate,
		messages:     messages,
		broker:       broker,
		config:       config,
		sessionGauge: scope.Gauge("chat_sessions"),
		sent:         scope.Counter("chat_messages_sent"),
		rejected:     scope.Counter("chat_messages_rejected"),
	}
}

// SendMessage stores a message from sender to receiver and pushes it to
// the receiver live. The message is stored before the push, a failed push
// only delays it to the next history fetch.
func (h *Hub) SendMessage(senderID, receiverID, body string) (*schema.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		h.rejected.Inc(1)
		return nil, ErrEmptyMessage
	}
	if h.config.MessageLimit > 0 && utf8.RuneCountInString(body) > h.config.MessageLimit {
		h.rejected.Inc(1)
		return nil, ErrMessageTooLong
	}

	matched, err := h.gate.IsMatched(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !matched {
		h.rejected.Inc(1)
		log.WithFields(log.Fields{
			"prefix":      logPrefix,
			"sender_id":   senderID,
			"receiver_id": receiverID,
		}).Warn("reject message between unmatched users")
		return nil, ErrNotMatched
	}

	msg := &schema.ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    body,
		Timestamp:  time.Now().UTC(),
	}
	if err := h.messages.AddMessage(msg); err != nil {
		return nil, err
	}
	h.sent.Inc(1)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := h.broker.Publish(ctx, messaging.UserTopic(receiverID), messaging.Envelope{
		Event: messaging.EventReceiveMessage,
		Data:  msg,
	}); err != nil {
		log.WithField("prefix", logPrefix).WithError(err).Warn("push message")
	}

	return msg, nil
}

// History returns the messages of a matched pair, oldest first
func (h *Hub) History(userA, userB string) ([]schema.ChatMessage, error) {
	matched, err := h.gate.IsMatched(userA, userB)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, ErrNotMatched
	}

	return h.messages.ListMessages(userA, userB, h.config.HistoryLimit)
}

// Session is one connection of an authenticated user
type Session struct {
	hub    *Hub
	userID string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	joined bool
	closed bool
	out    chan []byte
}

func (h *Hub) NewSession(ctx context.Context, userID string) *Session {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.sessions++
	h.sessionGauge.Update(float64(h.sessions))
	h.mu.Unlock()

	return &Session{
		hub:    h,
		userID: userID,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, sessionBufSize),
	}
}

func (s *Session) UserID() string {
	return s.userID
}

// Deliveries carries the frames published to the user's topic once joined.
// It is closed with the session.
func (s *Session) Deliveries() <-chan []byte {
	return s.out
}

// Join subscribes the session to its own user topic. Joining again is a
// no-op.
func (s *Session) Join(userID string) error {
	if userID != s.userID {
		return ErrIdentityMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return context.Canceled
	}
	if s.joined {
		return nil
	}

	ch, err := s.hub.broker.Subscribe(s.ctx, messaging.UserTopic(s.userID))
	if err != nil {
		return err
	}
	s.joined = true

	go func() {
		defer close(s.out)
		for {
			select {
			case payload, ok := <-ch:
				if !ok {
					return
				}
				select {
				case s.out <- payload:
				default:
					log.WithField("prefix", logPrefix).Warnf("drop delivery to slow session of %s", s.userID)
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Send sends a message as the session user
func (s *Session) Send(senderID, receiverID, body string) (*schema.ChatMessage, error) {
	if senderID != s.userID {
		return nil, ErrIdentityMismatch
	}
	return s.hub.SendMessage(senderID, receiverID, body)
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	if !s.joined {
		close(s.out)
	}

	h := s.hub
	h.mu.Lock()
	h.sessions--
	h.sessionGauge.Update(float64(h.sessions))
	h.mu.Unlock()
}
