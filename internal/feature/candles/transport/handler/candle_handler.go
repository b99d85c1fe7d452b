// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/candles/domain"
	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/transport/http/dto"
	"stock_alerts/internal/feature/candles/usecase"
	notificationdto "stock_alerts/internal/feature/notification/transport/dto"
	"stock_alerts/internal/feature/realtime/broker"
	httpdto "stock_alerts/internal/platform/http/dto"
)

// CandlesUsecase はハンドラーが必要とする読み取り操作です。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	Quote(ctx context.Context, symbol, interval string) (usecase.Quote, error)
}

type CandlesHandler struct {
	uc CandlesUsecase
}

func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetCandlesHandler handles GET /candles/:code?interval=1day&outputsize=200
func (h *CandlesHandler) GetCandlesHandler(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	interval := c.DefaultQuery("interval", usecase.DefaultInterval)
	// 数値でなければ 0 扱い (= デフォルト件数)
	outputsize, _ := strconv.Atoi(c.Query("outputsize"))

	candles, err := h.uc.GetCandles(c.Request.Context(), code, interval, outputsize)
	if err != nil {
		h.fail(c, code, interval, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSeriesResponse(code, interval, candles))
}

// GetQuoteHandler handles GET /candles/:code/quote. The body has the same
// shape as a price:<code> broker event.
func (h *CandlesHandler) GetQuoteHandler(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	interval := c.DefaultQuery("interval", usecase.DefaultInterval)

	q, err := h.uc.Quote(c.Request.Context(), code, interval)
	if err != nil {
		h.fail(c, code, interval, err)
		return
	}
	c.JSON(http.StatusOK, notificationdto.NewPriceEvent(broker.PriceTopic(code), q.Latest, q.Previous))
}

func (h *CandlesHandler) fail(c *gin.Context, code, interval string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrInvalidInterval):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoCandles):
		status = http.StatusNotFound
	default:
		slog.Warn("failed to load candles", "symbol", code, "interval", interval, "error", err)
	}
	c.JSON(status, httpdto.ErrorResponse{Error: err.Error()})
}
