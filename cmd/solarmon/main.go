package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/solarmon/solarmon/pkg/api"
	"github.com/solarmon/solarmon/pkg/apiclient"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/server"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/stream"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	store := session.Configured()
	client := apiclient.Configured(store)
	dialer := stream.Configured(store)
	live := server.NewLive()

	a := api.New(client)

	// init server
	srv := server.Configured(a.Energy, a.Security, store, live)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	log.SetLevel(level)
	slog.SetDefault(log.Ctx(context.Background()))
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := store.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close session store", slog.Any("error", err))
		}
	}()

	// live readings for the dashboard
	src := dialer.EnergyMonitoring(ctx)
	defer src.Close()
	src.OnError(func(err error) {
		log.Ctx(ctx).WarnContext(ctx, "energy stream error", slog.Any("error", err))
	})
	stop := live.Watch(ctx, src)
	defer stop()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
