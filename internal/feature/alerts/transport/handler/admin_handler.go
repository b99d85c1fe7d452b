// Package handler はalertsフィーチャーの運用向けHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
	httpdto "stock_alerts/internal/platform/http/dto"
)

// CycleRunner runs one evaluation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (entity.CycleReport, error)
}

// Acknowledger re-arms a triggered alert.
type Acknowledger interface {
	Acknowledge(ctx context.Context, id uint) error
}

type AdminHandler struct {
	runner CycleRunner
	ack    Acknowledger
}

func NewAdminHandler(runner CycleRunner, ack Acknowledger) *AdminHandler {
	return &AdminHandler{runner: runner, ack: ack}
}

// Evaluate は評価サイクルを1回実行し、その結果を返します。
//
// POST /admin/evaluate
func (h *AdminHandler) Evaluate(c *gin.Context) {
	report, err := h.runner.RunCycle(c.Request.Context())
	if err != nil {
		slog.Error("manual alert cycle failed", "error", err)
		c.JSON(http.StatusBadGateway, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Rearm はトリガー済みのアラートを再び評価対象に戻します。
//
// POST /admin/alerts/:id/rearm
func (h *AdminHandler) Rearm(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid alert id"})
		return
	}

	if err := h.ack.Acknowledge(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Warn("failed to re-arm alert", "alert_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to re-arm alert"})
		return
	}
	c.Status(http.StatusNoContent)
}
