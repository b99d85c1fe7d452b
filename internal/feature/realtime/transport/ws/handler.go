// Package ws exposes the broker to clients over WebSocket.
//
// Each socket gets one broker connection. The read loop handles
// auth/subscribe/unsubscribe requests; a separate write loop drains the
// connection's outbound queue, so a slow client never blocks a publisher.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stock_alerts/internal/feature/realtime/broker"
	httpdto "stock_alerts/internal/platform/http/dto"
	jwtmw "stock_alerts/internal/platform/jwt"
)

const (
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxMessageSize = 4096
)

// Broker is the part of the broker the socket layer drives.
type Broker interface {
	Register() (*broker.Conn, error)
	RemoveConnection(connID string)
	BindIdentity(connID string, userID uint) error
	Subscribe(connID, topic string) error
	Unsubscribe(connID, topic string) error
}

// TokenVerifier returns the user a bearer token proves.
type TokenVerifier func(token string) (uint, error)

type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration // ping は PongWait の 9/10 間隔で送る
	MaxMessageSize int64
}

type Handler struct {
	broker   Broker
	verify   TokenVerifier
	cfg      Config
	upgrader websocket.Upgrader
}

func NewHandler(b Broker, verify TokenVerifier, cfg Config) *Handler {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultPongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Handler{
		broker: b,
		verify: verify,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// モバイルアプリからの接続を想定し Origin は検査しない
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request to a WebSocket.
//
// A token may be given at connect time with ?token= or an Authorization
// header; an invalid one is rejected with 401 before the upgrade.
//
// GET /ws
func (h *Handler) Serve(c *gin.Context) {
	var userID uint
	if token := connectToken(c); token != "" {
		uid, err := h.verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid token"})
			return
		}
		userID = uid
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade はすでにエラーレスポンスを書き込んでいる
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn, err := h.broker.Register()
	if err != nil {
		slog.Warn("failed to register connection", "error", err)
		h.closeWith(ws, websocket.CloseTryAgainLater, "server shutting down")
		_ = ws.Close()
		return
	}
	log := slog.With("component", "ws", "conn_id", conn.ID())

	if userID != 0 {
		if err := h.broker.BindIdentity(conn.ID(), userID); err != nil {
			log.Warn("failed to bind identity", "user_id", userID, "error", err)
		}
	}
	_ = conn.Send(Reply{Type: ReplyConnected, ConnID: conn.ID(), UserID: userID})
	log.Info("client connected", "user_id", userID, "remote", c.ClientIP())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, ws, conn, log)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, ws)
	}()

	h.readLoop(ws, conn, log)

	cancel()
	h.broker.RemoveConnection(conn.ID())
	_ = ws.Close()
	wg.Wait()
	log.Info("client disconnected")
}

func connectToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, ok := jwtmw.BearerToken(c.GetHeader("Authorization")); ok {
		return token
	}
	return ""
}

// readLoop handles client requests until the socket fails or closes.
func (h *Handler) readLoop(ws *websocket.Conn, conn *broker.Conn, log *slog.Logger) {
	ws.SetReadLimit(h.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.Send(Reply{Type: ReplyError, Error: "malformed message"})
			continue
		}
		if err := conn.Send(h.handle(conn, msg)); err != nil {
			return
		}
	}
}

func (h *Handler) handle(conn *broker.Conn, msg ClientMessage) Reply {
	reply := Reply{Type: ReplyAck, Action: msg.Action, Topic: msg.Topic}
	var err error
	switch msg.Action {
	case ActionAuth:
		uid, verr := h.verify(msg.Token)
		if verr != nil {
			err = errInvalidToken
			break
		}
		err = h.broker.BindIdentity(conn.ID(), uid)
		reply.UserID = uid
	case ActionSubscribe:
		err = h.broker.Subscribe(conn.ID(), msg.Topic)
	case ActionUnsubscribe:
		err = h.broker.Unsubscribe(conn.ID(), msg.Topic)
	default:
		err = errUnknownAction
	}
	if err != nil {
		return Reply{Type: ReplyError, Action: msg.Action, Topic: msg.Topic, Error: clientError(err)}
	}
	return reply
}

var (
	errUnknownAction = errors.New("unknown action")
	errInvalidToken  = errors.New("invalid token")
)

// clientError hides internal details from the client.
func clientError(err error) string {
	for _, known := range []error{
		broker.ErrForbiddenTopic,
		broker.ErrInvalidTopic,
		broker.ErrIdentityAlreadyBound,
		broker.ErrInvalidIdentity,
		errUnknownAction,
		errInvalidToken,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "request failed"
}

// writeLoop is the only writer of data frames on ws.
func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *broker.Conn, log *slog.Logger) {
	for {
		m, err := conn.Next(ctx)
		if err != nil {
			if errors.Is(err, broker.ErrConnectionClosed) {
				// ブローカー側で切断された (劣化による強制切断またはシャットダウン)
				log.Info("connection closed by broker", "degraded", conn.Degraded())
				h.closeWith(ws, websocket.CloseTryAgainLater, "disconnected")
				_ = ws.Close()
			}
			return
		}
		_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
		if err := ws.WriteMessage(websocket.TextMessage, m.Payload); err != nil {
			log.Debug("websocket write failed", "error", err)
			_ = ws.Close()
			return
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl は他の書き込みと並行に呼び出せる
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) closeWith(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(h.cfg.WriteWait))
}
