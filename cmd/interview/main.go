package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MedAnkiGer/scid-interview-service/internal/audio"
	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/config"
	"github.com/MedAnkiGer/scid-interview-service/internal/metrics"
	"github.com/MedAnkiGer/scid-interview-service/internal/pipeline"
	"github.com/MedAnkiGer/scid-interview-service/internal/rater"
	"github.com/MedAnkiGer/scid-interview-service/internal/report"
	"github.com/MedAnkiGer/scid-interview-service/internal/server"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
	"github.com/MedAnkiGer/scid-interview-service/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "scid-interview-service"
	serviceVersion    = "1.0.0"
)

var (
	configPath string
	resumeID   string
	language   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "interview",
		Short:        "Structured interview pipeline with audio capture, transcription, and scoring",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a new interview session, or resume one with --resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview()
		},
	}
	runCmd.Flags().StringVar(&resumeID, "resume", "", "Session ID to resume")
	runCmd.Flags().StringVar(&language, "language", "", "Interview language (default from config)")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", serviceName, serviceVersion)
		},
	}

	rootCmd.AddCommand(runCmd, sessionsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInterview() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := initLogger(cfg.Logging)
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", configPath),
	)

	questionBank, err := bank.Load(cfg.Session.QuestionBank)
	if err != nil {
		return err
	}
	logger.Info("Question bank loaded",
		slog.String("path", cfg.Session.QuestionBank),
		slog.Int("categories", len(questionBank.Categories)),
		slog.Int("screening_items", len(questionBank.ScreeningItems)),
	)

	store, err := session.NewStore(cfg.Session.DataDir)
	if err != nil {
		return err
	}

	appMetrics := metrics.NewMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(store, cfg, appMetrics, logger)
	if err != nil {
		return err
	}

	source, err := audio.NewMalgoSource(cfg.Audio.SampleRate, cfg.Audio.BlockSize)
	if err != nil {
		return err
	}
	recorder, err := audio.NewRecorder(source, audio.RecorderConfig{
		SampleRate:          cfg.Audio.SampleRate,
		BlockSize:           cfg.Audio.BlockSize,
		SilenceThresholdRMS: cfg.Audio.SilenceThresholdRMS,
		SilenceDuration:     cfg.Audio.GetSilenceDuration(),
		MaxDuration:         cfg.Audio.GetMaxDuration(),
	}, logger)
	if err != nil {
		return err
	}

	transcriber, err := transcription.NewClient(transcription.Config{
		APIKey:  cfg.Transcription.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Model:   cfg.Transcription.Model,
		Timeout: cfg.Transcription.GetTimeoutDuration(),
	})
	if err != nil {
		return err
	}

	scorer, err := rater.NewClient(rater.Config{
		APIKey:    cfg.Rater.APIKey,
		Model:     cfg.Rater.Model,
		MaxTokens: cfg.Rater.MaxTokens,
		Timeout:   cfg.Rater.GetTimeoutDuration(),
	})
	if err != nil {
		return err
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, store, transcriber, scorer, appMetrics)
		if err := httpServer.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
			}
		}()
	}

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Logger:               logger,
		Store:                store,
		Bank:                 questionBank,
		Recorder:             recorder,
		Transcriber:          transcriber,
		Rater:                scorer,
		Interviewer:          newTerminalInterviewer(os.Stdin, os.Stdout),
		Reporter:             report.NewSummaryWriter(store.SessionDir(s.ID)),
		Metrics:              appMetrics,
		ClarificationCeiling: cfg.Audio.GetClarificationMaxDuration(),
	})
	if err != nil {
		return err
	}

	if err := runner.Run(ctx, s); err != nil {
		logger.Error("Interview failed",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	fmt.Printf("\nSession %s complete. Report written to %s\n", s.ID, store.SessionDir(s.ID))
	return nil
}

// openSession resumes an existing session or creates and checkpoints a new
// one at stage INIT.
func openSession(store *session.Store, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*session.Session, error) {
	if resumeID != "" {
		s, err := store.Load(resumeID)
		if err != nil {
			return nil, err
		}
		m.RecordSessionResumed()
		logger.Info("Session resumed",
			slog.String("session_id", s.ID),
			slog.String("stage", string(s.Stage)),
		)
		return s, nil
	}

	lang := language
	if lang == "" {
		lang = cfg.Session.DefaultLanguage
	}

	s := session.New(newSessionID(), lang, time.Now().UTC())
	if err := store.Save(s); err != nil {
		return nil, err
	}
	m.RecordSessionCreated()
	logger.Info("Session created",
		slog.String("session_id", s.ID),
		slog.String("language", s.Language),
	)
	return s, nil
}

func listSessions() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := session.NewStore(cfg.Session.DataDir)
	if err != nil {
		return err
	}

	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("%-10s  %-20s  %s\n", "SESSION", "CREATED", "STAGE")
	for _, summary := range summaries {
		fmt.Printf("%-10s  %-20s  %s\n", summary.ID, summary.CreatedAt, summary.Stage)
	}
	return nil
}

// newSessionID generates a short opaque session identifier.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
