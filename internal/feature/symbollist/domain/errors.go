package domain

import "errors"

// ErrSymbolNotFound は指定コードの銘柄が存在しないことを示します。
var ErrSymbolNotFound = errors.New("symbol not found")
