package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{
		OTLPEndpoint:    "localhost:4317",
		OTELServiceName: "test-service",
		AppEnv:          "test",
	}
	// The gRPC exporter connects lazily, so no collector is needed here.
	shutdown, err := SetupTracing(cfg)
	if err != nil {
		assert.Nil(t, shutdown)
		return
	}
	require.NotNil(t, shutdown)
	_ = shutdown(context.Background())
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(config.Config{AppEnv: "dev"}))
	assert.Equal(t, 0.1, sampleRatio(config.Config{AppEnv: "prod"}))
	assert.Equal(t, 0.25, sampleRatio(config.Config{AppEnv: "prod", TraceSampleRatio: 0.25}))
	assert.Equal(t, 1.0, sampleRatio(config.Config{TraceSampleRatio: 3}))
}
