// main package for the mix-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/affirmix/mix-service/internal/api"
	"github.com/affirmix/mix-service/internal/config"
	"github.com/affirmix/mix-service/internal/ffmpeg"
	"github.com/affirmix/mix-service/internal/fsutil"
	"github.com/affirmix/mix-service/internal/jobs"
	"github.com/affirmix/mix-service/internal/media"
	"github.com/affirmix/mix-service/internal/mixer"
	"github.com/affirmix/mix-service/internal/objectstore"
	"github.com/affirmix/mix-service/internal/synthesis"
	"github.com/affirmix/mix-service/internal/worker"
)

const shutdownGrace = 10 * time.Second

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "mix-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// Local overrides for development; absence is not an error.
	_ = godotenv.Load()

	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize audio store: %w", err)
	}

	jobStore, err := jobs.NewStatusStore(jetstreamContext, cfg.NATS.JobStatusBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize job status store: %w", err)
	}

	orchestrator, engine, err := buildPipeline(cfg, audioStore, log)
	if err != nil {
		return err
	}

	mixWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.MixRequestedSubject,
		audioStore,
		jobStore,
		orchestrator,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create mix worker: %w", err)
	}

	server := api.NewServer(orchestrator, jobStore, engine, log)

	return serve(cfg, log, server, mixWorker)
}

// buildPipeline assembles the orchestrator and its collaborators from the
// configuration.
func buildPipeline(
	cfg *config.Config,
	audioStore *objectstore.Store,
	log *logger.Logger,
) (*mixer.Orchestrator, *ffmpeg.Engine, error) {
	tempDir := cfg.Mix.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	err := fsutil.EnsureDir(tempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare temp directory: %w", err)
	}

	engine := ffmpeg.New(ffmpeg.Config{
		BinaryPath: cfg.Engine.BinaryPath,
		SampleRate: cfg.Engine.SampleRate,
		Bitrate:    cfg.Engine.Bitrate,
	}, log)

	probeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	probeErr := engine.Available(probeCtx)
	if probeErr != nil {
		log.Warn("Media engine probe failed, mixes will error until resolved: %v", probeErr)
	}

	providerClient := synthesis.NewClient(
		cfg.TTS.BaseURL,
		time.Duration(cfg.TTS.TimeoutSeconds)*time.Second,
	)

	synthesizer := synthesis.NewAdapter(providerClient, audioStore, synthesis.Options{
		Voice:              cfg.TTS.Voice,
		Language:           cfg.TTS.Language,
		Temperature:        cfg.TTS.Temperature,
		MaxCharsPerRequest: cfg.TTS.MaxCharsPerRequest,
	}, log)

	fetcher := media.NewFetcher(
		audioStore,
		tempDir,
		time.Duration(cfg.Mix.FetchTimeoutSeconds)*time.Second,
		log,
	)

	orchestrator := mixer.New(synthesizer, fetcher, engine, mixer.Options{
		TempDir:            tempDir,
		SafetyFloorSeconds: cfg.Mix.SafetyFloorSeconds,
		EngineTimeout:      time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
	}, log)

	return orchestrator, engine, nil
}

// serve runs the HTTP API and the NATS worker until a termination signal
// arrives, then shuts both down.
func serve(
	cfg *config.Config,
	log *logger.Logger,
	server *api.Server,
	mixWorker *worker.NatsWorker,
) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	workerErrChan := make(chan error, 1)

	go func() {
		workerErrChan <- mixWorker.Run(ctx)
	}()

	serverErrChan := make(chan error, 1)

	go func() {
		serverErrChan <- server.Start(cfg.HTTP.ListenAddress)
	}()

	log.System(
		"Mix-Service initialized. HTTP on %s, jobs on subject: %s",
		cfg.HTTP.ListenAddress,
		cfg.NATS.MixRequestedSubject,
	)

	var (
		runErr     error
		workerDone bool
	)

	select {
	case <-ctx.Done():
	case runErr = <-serverErrChan:
	case runErr = <-workerErrChan:
		workerDone = true
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		log.Error("HTTP shutdown failed: %v", shutdownErr)
	}

	if !workerDone {
		workerShutdownErr := <-workerErrChan
		if runErr == nil {
			runErr = workerShutdownErr
		}
	}

	return runErr
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
