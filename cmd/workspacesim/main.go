package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/hostsim"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		addr        = flag.String("addr", ":8090", "Listen address")
		instanceID  = flag.String("app-instance-id", "agentdesk-local", "App instance id sent on create")
		features    = flag.String("features", "", "Comma separated feature flags to advertise")
		createDelay = flag.Duration("create-delay", 100*time.Millisecond, "Delay before the create message; negative never sends it")
		noResult    = flag.Bool("no-result", false, "Fail agent state changes with noResult")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Str("service", "workspacesim").
		Logger()

	var flags []string
	for _, f := range strings.Split(*features, ",") {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}

	host := hostsim.New(hostsim.Config{
		AppInstanceID: *instanceID,
		Features:      flags,
		CreateDelay:   *createDelay,
		NoResult:      *noResult,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := host.Start(ctx, *addr); err != nil {
		logger.Fatal().Err(err).Msg("workspace simulator failed")
	}
	logger.Info().Msg("workspace simulator stopped")
}
