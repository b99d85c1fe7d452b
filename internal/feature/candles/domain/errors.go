// Package domain はcandlesフィーチャーのドメインエラーを定義します。
package domain

import "errors"

var (
	ErrInvalidInterval = errors.New("unsupported interval")
	ErrNoCandles       = errors.New("no candles for symbol")
)
