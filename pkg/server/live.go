package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/stream"
	"github.com/solarmon/solarmon/pkg/types"
)

// Feed is a stream of pushed messages. *stream.Source implements it.
type Feed interface {
	Subscribe(h stream.Handler) (unsubscribe func())
	IsConnected() bool
}

// Live keeps the latest pushed reading of every installation.
type Live struct {
	mu     sync.RWMutex
	feed   Feed
	latest map[int64]types.EnergyReading
}

// NewLive returns an empty Live. Call Watch to feed it.
func NewLive() *Live {
	return &Live{latest: map[int64]types.EnergyReading{}}
}

// Watch records readings from feed until the returned func is called.
func (l *Live) Watch(ctx context.Context, feed Feed) (stop func()) {
	l.mu.Lock()
	l.feed = feed
	l.mu.Unlock()
	return feed.Subscribe(func(msg types.StreamMessage) {
		if msg.Type != types.MessageEnergyReading {
			return
		}
		r, err := msg.EnergyReading()
		if err != nil {
			log.Ctx(ctx).DebugContext(ctx, "skipping undecodable reading", slog.Any("error", err))
			return
		}
		if r.InstallationID == 0 {
			r.InstallationID = msg.InstallationID
		}
		if r.InstallationID == 0 {
			return
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = msg.Timestamp
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if prev, ok := l.latest[r.InstallationID]; ok && r.Timestamp.Before(prev.Timestamp.Time) {
			return
		}
		l.latest[r.InstallationID] = r
	})
}

// Latest returns the newest reading seen for an installation.
func (l *Live) Latest(installationID int64) (types.EnergyReading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.latest[installationID]
	return r, ok
}

// Connected reports whether the watched feed is connected.
func (l *Live) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feed != nil && l.feed.IsConnected()
}

type liveResponse struct {
	Connected bool                 `json:"connected"`
	Reading   *types.EnergyReading `json:"reading"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id, ok := installationID(w, r)
	if !ok {
		return
	}
	var resp liveResponse
	if s.live != nil {
		resp.Connected = s.live.Connected()
		if reading, ok := s.live.Latest(id); ok {
			resp.Reading = &reading
		}
	}
	writeJSON(w, resp)
}
