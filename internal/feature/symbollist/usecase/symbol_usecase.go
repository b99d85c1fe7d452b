// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stock_alerts/internal/feature/symbollist/domain"
	"stock_alerts/internal/feature/symbollist/domain/entity"
)

// SymbolRepository abstracts the persistence layer for instrument metadata.
type SymbolRepository interface {
	ListActive(ctx context.Context, market string) ([]entity.Symbol, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
	// FindByCode returns nil when no symbol has the code.
	FindByCode(ctx context.Context, code string) (*entity.Symbol, error)
}

type SymbolUsecase struct {
	repo SymbolRepository
}

func NewSymbolUsecase(r SymbolRepository) *SymbolUsecase {
	return &SymbolUsecase{repo: r}
}

// ListActiveSymbols returns the active symbols, optionally narrowed to one market.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context, market string) ([]entity.Symbol, error) {
	return u.repo.ListActive(ctx, strings.TrimSpace(market))
}

// ListActiveCodes returns the codes of all active symbols, used as the ingest target list.
func (u *SymbolUsecase) ListActiveCodes(ctx context.Context) ([]string, error) {
	return u.repo.ListActiveCodes(ctx)
}

// Get は1銘柄を返します。存在しなければ domain.ErrSymbolNotFound。
func (u *SymbolUsecase) Get(ctx context.Context, code string) (*entity.Symbol, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	s, err := u.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find symbol %s: %w", code, err)
	}
	if s == nil {
		return nil, domain.ErrSymbolNotFound
	}
	return s, nil
}

// ResolveName returns the display name of code. Unknown codes and lookup
// failures fall back to the code itself so a notification is never held back
// by missing metadata.
func (u *SymbolUsecase) ResolveName(ctx context.Context, code string) string {
	s, err := u.repo.FindByCode(ctx, code)
	if err != nil {
		slog.Warn("failed to resolve symbol name", "symbol", code, "error", err)
		return code
	}
	if s == nil {
		return code
	}
	return s.DisplayName()
}
