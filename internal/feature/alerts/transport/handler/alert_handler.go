package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
	"stock_alerts/internal/feature/alerts/transport/http/dto"
	"stock_alerts/internal/feature/alerts/usecase"
	httpdto "stock_alerts/internal/platform/http/dto"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// AlertUsecase is the user-facing alert management surface.
type AlertUsecase interface {
	Create(ctx context.Context, userID uint, in usecase.NewAlertInput) (entity.Alert, error)
	List(ctx context.Context, userID uint) ([]entity.Alert, error)
	Delete(ctx context.Context, userID, id uint) error
}

// AlertHandler は認証済みユーザーのアラート操作を処理します。
// jwtmw.AuthRequired の後段で使用すること。
type AlertHandler struct {
	uc AlertUsecase
}

func NewAlertHandler(uc AlertUsecase) *AlertHandler {
	return &AlertHandler{uc: uc}
}

// Create は新しいアラートを登録します。
//
// POST /alerts
func (h *AlertHandler) Create(c *gin.Context) {
	userID := c.GetUint(jwtmw.ContextUserID)

	var req dto.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
		return
	}

	a, err := h.uc.Create(c.Request.Context(), userID, usecase.NewAlertInput{
		InstrumentID: req.InstrumentID,
		Kind:         entity.Kind(req.Kind),
		Threshold:    req.Threshold,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAlert) {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to create alert", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to create alert"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(a))
}

// List はユーザーのアラート一覧を返します。
//
// GET /alerts
func (h *AlertHandler) List(c *gin.Context) {
	userID := c.GetUint(jwtmw.ContextUserID)

	alerts, err := h.uc.List(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list alerts", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to list alerts"})
		return
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// Delete はユーザー自身のアラートを削除します。
//
// DELETE /alerts/:id
func (h *AlertHandler) Delete(c *gin.Context) {
	userID := c.GetUint(jwtmw.ContextUserID)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid alert id"})
		return
	}
	if err := h.uc.Delete(c.Request.Context(), userID, uint(id)); err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to delete alert", "user_id", userID, "alert_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to delete alert"})
		return
	}
	c.Status(http.StatusNoContent)
}

func toResponse(a entity.Alert) dto.AlertResponse {
	out := dto.AlertResponse{
		ID:           a.ID,
		InstrumentID: a.InstrumentID,
		Kind:         string(a.Kind),
		Threshold:    a.Threshold,
		Active:       a.Active,
		Triggered:    a.Triggered,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.LastTriggeredAt != nil {
		s := a.LastTriggeredAt.UTC().Format(time.RFC3339)
		out.LastTriggeredAt = &s
	}
	return out
}
