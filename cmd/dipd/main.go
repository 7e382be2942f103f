package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"dipindex/cmd/internal/passphrase"
	"dipindex/config"
	"dipindex/core/events"
	"dipindex/core/state"
	"dipindex/core/types"
	"dipindex/crypto"
	"dipindex/native/bank"
	nativecommon "dipindex/native/common"
	"dipindex/native/index"
	"dipindex/observability/logging"
	"dipindex/observability/metrics"
	dipotel "dipindex/observability/otel"
	"dipindex/rpc"
	"dipindex/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	passSource := passphrase.NewSource(passphrase.EnvVar).AllowEmpty()
	cfg, err := config.Load(*configFile, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv("DIP_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("dipd", env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	if err := run(cfg, env, passSource, logger); err != nil {
		logger.Error("dipd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, env string, passSource *passphrase.Source, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := dipotel.Init(ctx, dipotel.Config{
		ServiceName: "dipd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     dipotel.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	engine := index.NewEngine(state.NewStore(db))
	engine.SetParams(cfg.IndexParams())
	engine.SetPauses(nativecommon.NewPauseSet(cfg.PausedHandlers...))
	engine.SetMetrics(metrics.Index())
	engine.SetLogger(logger)
	engine.SetEmitter(&logEmitter{logger: logger.With("component", "events")})

	pass, err := passSource.Get()
	if err != nil {
		return fmt.Errorf("keystore passphrase: %w", err)
	}
	operator, err := crypto.LoadFromKeystore(cfg.KeystorePath, pass)
	if err != nil {
		return fmt.Errorf("unable to decrypt keystore %s: %w", cfg.KeystorePath, err)
	}
	mint, err := ensureVoteMint(engine, operator.PubKey().Address().Raw(), cfg.VoteMintSeed)
	if err != nil {
		return err
	}
	logger.Info("vote mint ready",
		slog.String("mint", mint.Hex()),
		slog.String("authority", operator.PubKey().Address().String()),
		slog.String("backend", cfg.Backend))
	if len(cfg.PausedHandlers) > 0 {
		logger.Warn("handlers paused", slog.Any("handlers", cfg.PausedHandlers))
	}

	server, err := rpc.New(rpc.Config{
		ListenAddress: cfg.RPCAddress,
		ServiceName:   "dipd",
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
	}, engine, logger, metrics.Index())
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// ensureVoteMint creates the vote mint on first start. A mint created by a
// different key is reported since the operator could not issue from it.
func ensureVoteMint(engine *index.Engine, operator [20]byte, seed string) (common.Hash, error) {
	id := bank.MintID([]byte(seed))
	if _, err := engine.CreateMint(operator, seed); err != nil && !errors.Is(err, state.ErrExists) {
		return id, fmt.Errorf("bootstrap vote mint: %w", err)
	}
	var mint *bank.Mint
	err := engine.Store().View(func(tx *state.Tx) error {
		var err error
		mint, err = engine.Ledger().Mint(tx, id)
		return err
	})
	if err != nil {
		return id, err
	}
	if mint.Authority != operator {
		return id, fmt.Errorf("vote mint %s is controlled by another authority", id.Hex())
	}
	return id, nil
}

type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(evt events.Event) {
	if ie, ok := evt.(interface{ Event() *types.Event }); ok {
		e := ie.Event()
		l.logger.Info("index event", slog.String("type", e.Type), slog.Any("attributes", e.Attributes))
		return
	}
	l.logger.Info("index event", slog.String("type", evt.EventType()))
}
