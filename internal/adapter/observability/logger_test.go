package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
)

func TestSetupLogger_Levels(t *testing.T) {
	dev := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"})
	assert.True(t, dev.Enabled(context.Background(), slog.LevelDebug))

	prod := SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"})
	assert.False(t, prod.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, prod.Enabled(context.Background(), slog.LevelInfo))

	test := SetupLogger(config.Config{AppEnv: "test", OTELServiceName: "svc"})
	assert.False(t, test.Enabled(context.Background(), slog.LevelInfo))
}
