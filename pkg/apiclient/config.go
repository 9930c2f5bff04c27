package apiclient

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/solarmon/solarmon/pkg/common"
)

// Configured sets up the API client based on flags.
func Configured(creds Credentials) *Client {
	baseURL := lflag.String("api-base-url", common.EnvOr("SOLARMON_API_URL", "http://localhost:8080"), "Base URL of the SolarMon REST API")
	timeout := lflag.Duration("api-timeout", DefaultTimeout, "Timeout for each API attempt")
	retryDelay := lflag.Duration("api-retry-delay", DefaultBaseDelay, "Base delay before retrying a failed API request")
	noRetry := lflag.Bool("api-no-retry", false, "Disable retries of transient API failures")

	c := &Client{}

	lflag.Do(func() {
		opts := DefaultOptions(*baseURL)
		opts.Timeout = *timeout
		opts.BaseDelay = *retryDelay
		if *noRetry {
			opts.MaxRetries = 0
		}
		nc, err := New(creds, opts)
		if err != nil {
			panic(fmt.Sprintf("api client init failed: %v", err))
		}
		*c = *nc
	})

	return c
}
