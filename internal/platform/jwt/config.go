// Package jwtmw は HS256 の JWT を発行・検証し、gin のミドルウェアを提供します。
package jwtmw

const (
	// EnvKeyJWTSecret is the environment variable holding the HMAC secret.
	EnvKeyJWTSecret = "JWT_SECRET"
	// Issuer is written into and required from every token.
	Issuer = "stock_alerts"
)
