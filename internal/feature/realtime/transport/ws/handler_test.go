package ws_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_alerts/internal/feature/realtime/broker"
	"stock_alerts/internal/feature/realtime/transport/ws"
)

// fakeVerify は "user-<id>" 形式のトークンだけを受け付けます。
func fakeVerify(token string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(token, "user-"), 10, 64)
	if err != nil || !strings.HasPrefix(token, "user-") {
		return 0, errors.New("bad token")
	}
	return uint(id), nil
}

func setupServer(t *testing.T) (*broker.Broker, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := broker.New(broker.Config{})
	h := ws.NewHandler(b, fakeVerify, ws.Config{})
	r := gin.New()
	r.GET("/ws", h.Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})
	return b, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) (*websocket.Conn, ws.Reply) {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	var hello ws.Reply
	readJSON(t, c, &hello)
	require.Equal(t, ws.ReplyConnected, hello.Type)
	require.NotEmpty(t, hello.ConnID)
	return c, hello
}

func readJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, c.ReadJSON(v))
}

func request(t *testing.T, c *websocket.Conn, msg ws.ClientMessage) ws.Reply {
	t.Helper()
	require.NoError(t, c.WriteJSON(msg))
	var reply ws.Reply
	readJSON(t, c, &reply)
	return reply
}

type priceEvent struct {
	Topic  string  `json:"topic"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestHandler_SubscribeAndReceive(t *testing.T) {
	b, url := setupServer(t)
	c, _ := dial(t, url)

	reply := request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "price:APPL"})
	assert.Equal(t, ws.Reply{Type: ws.ReplyAck, Action: ws.ActionSubscribe, Topic: "price:APPL"}, reply)

	require.NoError(t, b.Publish("price:APPL", priceEvent{Topic: "price:APPL", Symbol: "APPL", Price: 3.45}))

	var ev priceEvent
	readJSON(t, c, &ev)
	assert.Equal(t, priceEvent{Topic: "price:APPL", Symbol: "APPL", Price: 3.45}, ev)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionUnsubscribe, Topic: "price:APPL"})
	assert.Equal(t, ws.ReplyAck, reply.Type)
	assert.Empty(t, b.Topics())
}

func TestHandler_ConnectTimeToken(t *testing.T) {
	b, url := setupServer(t)

	c, hello := dial(t, url+"?token=user-7")
	assert.Equal(t, uint(7), hello.UserID)

	reply := request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "alerts:7"})
	assert.Equal(t, ws.ReplyAck, reply.Type)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "alerts:8"})
	assert.Equal(t, ws.ReplyError, reply.Type)
	assert.Equal(t, broker.ErrForbiddenTopic.Error(), reply.Error)

	assert.Equal(t, map[string]int{"alerts:7": 1}, b.Topics())
}

func TestHandler_AuthorizationHeader(t *testing.T) {
	_, url := setupServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer user-3")
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer c.Close()

	var hello ws.Reply
	readJSON(t, c, &hello)
	assert.Equal(t, uint(3), hello.UserID)
}

func TestHandler_InvalidConnectToken(t *testing.T) {
	_, url := setupServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_AuthAction(t *testing.T) {
	_, url := setupServer(t)
	c, hello := dial(t, url)
	assert.Zero(t, hello.UserID)

	reply := request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "alerts:5"})
	assert.Equal(t, ws.ReplyError, reply.Type)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionAuth, Token: "nope"})
	assert.Equal(t, ws.Reply{Type: ws.ReplyError, Action: ws.ActionAuth, Error: "invalid token"}, reply)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionAuth, Token: "user-5"})
	assert.Equal(t, ws.Reply{Type: ws.ReplyAck, Action: ws.ActionAuth, UserID: 5}, reply)

	// 一度結び付けた ID は変更できない
	reply = request(t, c, ws.ClientMessage{Action: ws.ActionAuth, Token: "user-6"})
	assert.Equal(t, broker.ErrIdentityAlreadyBound.Error(), reply.Error)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "alerts:5"})
	assert.Equal(t, ws.ReplyAck, reply.Type)
}

func TestHandler_BadRequests(t *testing.T) {
	_, url := setupServer(t)
	c, _ := dial(t, url)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var reply ws.Reply
	readJSON(t, c, &reply)
	assert.Equal(t, ws.Reply{Type: ws.ReplyError, Error: "malformed message"}, reply)

	reply = request(t, c, ws.ClientMessage{Action: "dance"})
	assert.Equal(t, "unknown action", reply.Error)

	reply = request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "news:APPL"})
	assert.Equal(t, broker.ErrInvalidTopic.Error(), reply.Error)
}

func TestHandler_DisconnectCleansUp(t *testing.T) {
	b, url := setupServer(t)
	c, _ := dial(t, url)

	request(t, c, ws.ClientMessage{Action: ws.ActionSubscribe, Topic: "price:APPL"})
	require.Equal(t, 1, b.ConnectionCount())

	require.NoError(t, c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = c.Close()

	assert.Eventually(t, func() bool {
		return b.ConnectionCount() == 0 && len(b.Topics()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_BrokerSideDisconnect(t *testing.T) {
	b, url := setupServer(t)
	c, hello := dial(t, url)

	b.RemoveConnection(hello.ConnID)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}
