package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/symbollist/domain"
	"stock_alerts/internal/feature/symbollist/domain/entity"
	"stock_alerts/internal/feature/symbollist/transport/http/dto"
	httpdto "stock_alerts/internal/platform/http/dto"
)

// SymbolUsecase is the part of the symbol usecase the handler needs.
type SymbolUsecase interface {
	ListActiveSymbols(ctx context.Context, market string) ([]entity.Symbol, error)
	Get(ctx context.Context, code string) (*entity.Symbol, error)
}

type SymbolHandler struct {
	uc SymbolUsecase
}

func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List handles GET /symbols?market=...
func (h *SymbolHandler) List(c *gin.Context) {
	symbols, err := h.uc.ListActiveSymbols(c.Request.Context(), c.Query("market"))
	if err != nil {
		slog.Warn("failed to list symbols", "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, dto.NewSymbolItem(s))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /symbols/:code
func (h *SymbolHandler) Get(c *gin.Context) {
	s, err := h.uc.Get(c.Request.Context(), c.Param("code"))
	switch {
	case errors.Is(err, domain.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		slog.Warn("failed to get symbol", "code", c.Param("code"), "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewSymbolItem(*s))
}
