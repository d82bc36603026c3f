package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	switch {
	case cfg.IsDev():
		opts.Level = slog.LevelDebug
	case cfg.IsTest():
		opts.Level = slog.LevelWarn
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
