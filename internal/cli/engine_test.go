package cli

import (
	"errors"
	"testing"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/simd"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"exec without command", func(c *config.Config) {}, true},
		{"exec", func(c *config.Config) { c.Engine.Command = "quackengine" }, false},
		{"ssh without host", func(c *config.Config) {
			c.Engine.Kind = config.EngineKindSSH
			c.Engine.Command = "quackengine"
		}, true},
		{"remote", func(c *config.Config) { c.Engine.Kind = config.EngineKindRemote }, false},
		{"unknown kind", func(c *config.Config) { c.Engine.Kind = "carrier-pigeon" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			eng, closeEngine, err := buildEngine(cfg)
			require.NotNil(t, closeEngine)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
				require.Nil(t, eng)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, eng)
			require.NoError(t, closeEngine())
		})
	}
}

func TestBuildEngineKinds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.Command = "quackengine"

	eng, _, err := buildEngine(cfg)
	require.NoError(t, err)
	require.IsType(t, &engine.ExecEngine{}, eng)

	cfg.Engine.Kind = config.EngineKindRemote
	eng, closeEngine, err := buildEngine(cfg)
	require.NoError(t, err)
	defer closeEngine()
	require.IsType(t, &simd.Client{}, eng)
}

func TestSimulateLimits(t *testing.T) {
	require.Nil(t, simulateLimits(0, 0, 0))

	defaults := simd.DefaultLimits[simd.SimulateMethod]
	limits := simulateLimits(0, 0, 16)
	require.NotNil(t, limits)
	require.Equal(t, int64(16), limits.MaxInFlight)
	require.Equal(t, defaults.Rate, limits.Rate)
	require.Equal(t, defaults.Burst, limits.Burst)

	limits = simulateLimits(0.5, 3, 0)
	require.Equal(t, simd.Limits{Rate: 0.5, Burst: 3, MaxInFlight: defaults.MaxInFlight}, *limits)
}
