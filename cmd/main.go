package main

import (
	"chat-relay/contract"
	grpcinfra "chat-relay/infrastructure/grpc"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (database close) run first.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Persistence gateway
	gateway := repositories.NewGateway(log,
		repositories.NewRoomRepository(db, log),
		repositories.NewMessageRepository(db, log, config.LimitMessages),
		config.PersistenceTimeout,
	)

	// 4. Shared state & chat service
	registry := runtime.NewRegistry()
	directory := runtime.NewDirectory(log, gateway)
	broadcaster := runtime.NewBroadcaster(log, registry, directory)
	censor, err := newCensor(config, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	chat := services.NewChatService(log, registry, directory, broadcaster, gateway, censor)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewDirectorySeeder(log, directory),
		websocket.NewServer(log,
			fmt.Sprintf("%s:%d", config.Host, config.Port),
			chat, registry, directory,
			websocket.Options{
				BufferSize:     config.ConnectionBufferSize,
				MaxMessageSize: config.MaxMessageSize,
				WriteWait:      config.WriteWait,
				PongWait:       config.PongWait,
			}),
		grpcinfra.NewHealthServer(log,
			fmt.Sprintf("%s:%d", config.Host, config.GrpcPort),
			directory, config.RestartInterval),
		workers.NewTelemetryWorker(log, registry, directory, config.MetricInterval),
	)

	// 7. Run until a signal arrives
	log.Info("Chat relay starting", "port", config.Port, "grpc_port", config.GrpcPort)
	sup.Run(ctx)
	log.Info("Program stopped cleanly")
	return nil
}

// newCensor returns nil when moderation is disabled.
func newCensor(config internal.Config, log *slog.Logger) (contract.Censor, error) {
	if !config.ModerationEnabled {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := runtime.NewCensoredLoader(runtime.CensoredFolder).LoadAll("censored")
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(data.Words, char, log)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderator, nil
}
