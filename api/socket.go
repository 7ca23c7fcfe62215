package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bitmark-inc/plasmalink-api/chat"
	"github.com/bitmark-inc/plasmalink-api/messaging"
)

const (
	socketEventJoin        = "join"
	socketEventSendMessage = "sendMessage"

	socketWriteWait      = 10 * time.Second
	socketPongWait       = 60 * time.Second
	socketPingPeriod     = socketPongWait * 9 / 10
	socketMaxMessageSize = 16 * 1024
)

type socketFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type socketJoin struct {
	UserID string `json:"userId"`
}

type socketSendMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// checkOrigin accepts the configured client origin and same host requests
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if origin == clientURL() {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// socket upgrades an authenticated request into a live chat session. The
// session identity is the token's, frames claiming another user are
// refused.
func (s *Server) socket(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has answered the client already
		c.Error(err)
		return
	}

	session := s.hub.NewSession(c.Request.Context(), user.ID)
	client := &socketClient{
		conn:    conn,
		session: session,
		replies: make(chan interface{}, 16),
		done:    make(chan struct{}),
		log:     log.WithFields(logrus.Fields{"socket_user": user.ID}),
	}

	go client.writeLoop()
	client.readLoop()
}

type socketClient struct {
	conn    *websocket.Conn
	session *chat.Session
	replies chan interface{}
	done    chan struct{}
	log     *logrus.Entry
}

// readLoop handles incoming frames until the connection drops
func (sc *socketClient) readLoop() {
	defer func() {
		close(sc.done)
		sc.session.Close()
		sc.conn.Close()
	}()

	sc.conn.SetReadLimit(socketMaxMessageSize)
	_ = sc.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		var frame socketFrame
		if err := sc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.log.WithError(err).Warn("socket closed unexpectedly")
			}
			return
		}

		sc.handle(frame)
	}
}

func (sc *socketClient) handle(frame socketFrame) {
	switch frame.Event {
	case socketEventJoin:
		var data socketJoin
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			sc.replyError(errorCannotParseRequest)
			return
		}
		if err := sc.session.Join(data.UserID); err != nil {
			sc.replyDomainError(err)
			return
		}
		sc.log.Debug("joined")

	case socketEventSendMessage:
		var data socketSendMessage
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			sc.replyError(errorCannotParseRequest)
			return
		}
		msg, err := sc.session.Send(data.SenderID, data.ReceiverID, data.Message)
		if err != nil {
			sc.replyDomainError(err)
			return
		}
		sc.reply(messaging.Envelope{Event: messaging.EventMessageSent, Data: msg})

	default:
		sc.replyError(errorInvalidParameters)
	}
}

func (sc *socketClient) reply(v interface{}) {
	select {
	case sc.replies <- v:
	case <-sc.done:
	}
}

func (sc *socketClient) replyError(resp ErrorResponse) {
	sc.reply(messaging.Envelope{Event: messaging.EventError, Data: resp})
}

func (sc *socketClient) replyDomainError(err error) {
	code, resp := domainErrorResponse(err)
	if code == http.StatusInternalServerError {
		sc.log.WithError(err).Error("socket frame")
	}
	sc.replyError(resp)
}

// writeLoop is the only writer of the connection. It merges replies to the
// client's own frames with deliveries from the user topic.
func (sc *socketClient) writeLoop() {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		sc.conn.Close()
	}()

	deliveries := sc.session.Deliveries()
	for {
		select {
		case v := <-sc.replies:
			_ = sc.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := sc.conn.WriteJSON(v); err != nil {
				return
			}

		case payload, ok := <-deliveries:
			if !ok {
				deliveries = nil
				continue
			}
			_ = sc.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := sc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = sc.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sc.done:
			return
		}
	}
}
