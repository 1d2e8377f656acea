package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"tutorial_finder/internal/config"
	"tutorial_finder/internal/domain"
	"tutorial_finder/internal/imageprep"
	"tutorial_finder/internal/metrics"
	"tutorial_finder/internal/publisher"
	"tutorial_finder/internal/service"
	"tutorial_finder/internal/source/huggingface"
	"tutorial_finder/internal/source/youtube"
)

const (
	msgNoImageURL    = "No image URL provided."
	msgNoQuery       = "Could not generate a search query from the image."
	msgNoCredential  = config.TokenEnv + " is not found in the environment variables"
	metricsPushLimit = 5 * time.Second
)

type errorPayload struct {
	Error string `json:"error"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run writes the result object to stdout, or a single {"error": ...} object
// to stderr. Handled failures still exit 0.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tutorfinder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "path to config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := setupLogger("info", stderr)

	if fs.NArg() < 1 {
		writeJSON(stderr, errorPayload{Error: msgNoImageURL})
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		writeJSON(stderr, errorPayload{Error: err.Error()})
		return 1
	}

	logWriter := stderr
	if cfg.Log.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		}
		defer rotating.Close()
		logWriter = io.MultiWriter(stderr, rotating)
	}
	logger = setupLogger(cfg.LogLevel, logWriter)

	ctx := context.Background()
	m := metrics.New()

	preparer := imageprep.New(imageprep.Config{
		Timeout:   cfg.Image.Timeout,
		UserAgent: cfg.Image.UserAgent,
		MaxBytes:  cfg.Image.MaxBytes,
	}, logger)

	describer := huggingface.New(huggingface.Config{
		BaseURL:     cfg.Description.BaseURL,
		Model:       cfg.Description.Model,
		Token:       cfg.Description.Token,
		MaxTokens:   *cfg.Description.MaxTokens,
		Temperature: *cfg.Description.Temperature,
		Timeout:     cfg.Description.Timeout,
	}, logger)

	searcher := youtube.New(youtube.Config{
		BaseURL: cfg.Search.BaseURL,
		APIKey:  cfg.Search.APIKey,
		Region:  cfg.Search.Region,
		Timeout: cfg.Search.Timeout,
	}, logger)

	var pub service.Publisher
	if cfg.Publisher.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.Publisher.URL,
			Exchange:   cfg.Publisher.Exchange,
			RoutingKey: cfg.Publisher.RoutingKey,
			QueueName:  cfg.Publisher.QueueName,
		}, logger)
		if err != nil {
			m.IncStageFailure(metrics.StagePublish)
			logger.Warn("result publishing disabled", "error", err)
		} else {
			defer rabbitMQ.Close()
			pub = rabbitMQ
		}
	}

	finder := service.NewFinder(preparer, describer, searcher, pub, m, logger, cfg.Search)

	result, err := finder.Find(ctx, fs.Arg(0))
	pushMetrics(ctx, m, cfg.Metrics, logger)

	switch {
	case err == nil:
		writeJSON(stdout, result)
	case errors.Is(err, domain.ErrNoImageURL):
		writeJSON(stderr, errorPayload{Error: msgNoImageURL})
	case errors.Is(err, domain.ErrMissingCredential):
		logger.Error("configuration error", "error", err)
		writeJSON(stderr, errorPayload{Error: msgNoCredential})
	default:
		logger.Error("description backend failed", "error", err)
		writeJSON(stderr, errorPayload{Error: msgNoQuery})
	}

	return 0
}

func pushMetrics(ctx context.Context, m *metrics.Metrics, cfg config.MetricsConfig, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, metricsPushLimit)
	defer cancel()

	if err := m.Push(pushCtx, cfg.PushgatewayURL, cfg.Job); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func setupLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}
