// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import (
	"time"
)

// Config holds configuration for the Twelve Data API client.
// It is populated by go-envconfig as part of the application config.
type Config struct {
	TwelveDataAPIKey string        `env:"TWELVE_DATA_API_KEY"`                                      // API key for authentication
	BaseURL          string        `env:"TWELVE_DATA_BASE_URL,default=https://api.twelvedata.com"` // Base URL for the API
	Timeout          time.Duration `env:"TWELVE_DATA_TIMEOUT,default=10s"`                          // HTTP request timeout
	RequestsPerMin   int           `env:"TWELVE_DATA_REQUESTS_PER_MINUTE,default=8"`                // free plan quota
}
