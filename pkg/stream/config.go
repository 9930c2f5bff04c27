package stream

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/solarmon/solarmon/pkg/common"
)

// Configured sets up the stream Dialer based on flags.
func Configured(tokens TokenSource) *Dialer {
	wsURL := lflag.String("ws-url", common.EnvOr("SOLARMON_WS_URL", "ws://localhost:8080/ws"), "Base URL of the SolarMon WebSocket channels")
	minWait := lflag.Duration("ws-reconnect-min", DefaultPolicy().Min, "Initial wait before reconnecting a dropped stream")
	maxWait := lflag.Duration("ws-reconnect-max", DefaultPolicy().Max, "Longest wait between stream reconnect attempts")

	d := &Dialer{}

	lflag.Do(func() {
		p := DefaultPolicy()
		p.Min = *minWait
		p.Max = *maxWait
		nd, err := NewDialer(*wsURL, tokens, p)
		if err != nil {
			panic(fmt.Sprintf("stream dialer init failed: %v", err))
		}
		*d = *nd
	})

	return d
}
