// Package handler はブローカーの状態を確認する運用向けエンドポイントです。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TopicLister returns every live topic with its subscriber count.
type TopicLister interface {
	Topics() map[string]int
	ConnectionCount() int
}

type TopicsResponse struct {
	Connections int            `json:"connections"`
	Topics      map[string]int `json:"topics"`
}

type TopicsHandler struct {
	broker TopicLister
}

func NewTopicsHandler(b TopicLister) *TopicsHandler {
	return &TopicsHandler{broker: b}
}

// List GET /admin/topics
func (h *TopicsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, TopicsResponse{
		Connections: h.broker.ConnectionCount(),
		Topics:      h.broker.Topics(),
	})
}
