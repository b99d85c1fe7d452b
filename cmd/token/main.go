package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtmw "stock_alerts/internal/platform/jwt"
)

// token は JWT_SECRET で署名した開発・運用向けのトークンを発行します。
//
//	go run ./cmd/token -user 1 -ttl 24h
func main() {
	_ = godotenv.Load()

	userID := flag.Uint("user", 0, "user id placed in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" || *userID == 0 {
		slog.Error("JWT_SECRET and -user are required")
		os.Exit(2)
	}

	token, err := jwtmw.NewGenerator(secret, *ttl).GenerateToken(*userID)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
