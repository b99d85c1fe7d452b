package ws

// クライアント → サーバーのアクション
const (
	ActionAuth        = "auth"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// サーバー → クライアントの応答種別
const (
	ReplyConnected = "connected"
	ReplyAck       = "ack"
	ReplyError     = "error"
)

// ClientMessage is one JSON request read from the socket.
type ClientMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Reply answers a ClientMessage. It travels through the connection's outbound
// queue, so it is ordered with the events published before it.
type Reply struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Topic  string `json:"topic,omitempty"`
	ConnID string `json:"connId,omitempty"`
	UserID uint   `json:"userId,omitempty"`
	Error  string `json:"error,omitempty"`
}
