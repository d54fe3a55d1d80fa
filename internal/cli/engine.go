package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/simd"
	"github.com/spf13/cobra"
)

var (
	engineServeHost        string
	engineServePort        int
	engineServeRate        float64
	engineServeBurst       int
	engineServeMaxInFlight int64
	engineServeNoLimits    bool

	engineStatusAddress string
)

func init() {
	rootCmd.AddCommand(engineCmd)
	engineCmd.AddCommand(engineServeCmd)
	engineCmd.AddCommand(engineStatusCmd)

	engineServeCmd.Flags().StringVar(&engineServeHost, "host", "127.0.0.1", "address to bind")
	engineServeCmd.Flags().IntVar(&engineServePort, "port", simd.DefaultPort, "port to listen on")
	engineServeCmd.Flags().Float64Var(&engineServeRate, "rate", 0, "simulate requests per second (0 keeps the default)")
	engineServeCmd.Flags().IntVar(&engineServeBurst, "burst", 0, "simulate burst size (0 keeps the default)")
	engineServeCmd.Flags().Int64Var(&engineServeMaxInFlight, "max-in-flight", 0, "concurrent simulations (0 keeps the default)")
	engineServeCmd.Flags().BoolVar(&engineServeNoLimits, "no-limits", false, "admit every request")

	engineStatusCmd.Flags().StringVar(&engineStatusAddress, "address", "", "daemon address (default engine.remote.address)")
}

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Manage the simulation engine",
}

var engineServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured engine over gRPC",
	Long: `Serve the locally configured engine (exec or ssh) to remote quacksim
clients that set engine.kind to remote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Engine.Kind == config.EngineKindRemote {
			return &PreflightError{
				Message:  "engine serve needs a local engine, but engine.kind is remote",
				Hint:     "Set engine.kind to exec or ssh on the serving host",
				NextStep: "quacksim config show",
			}
		}

		eng, closeEngine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer closeEngine()

		opts := simd.Options{
			Hostname:       engineServeHost,
			Port:           engineServePort,
			Version:        version,
			DisableLimits:  engineServeNoLimits,
			SimulateLimits: simulateLimits(engineServeRate, engineServeBurst, engineServeMaxInFlight),
		}

		daemon, err := simd.NewDaemon(eng, logging.Component("simd"), opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return daemon.Run(ctx)
	},
}

var engineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running engine daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		address := engineStatusAddress
		if address == "" {
			address = GetConfig().Engine.Remote.Address
		}
		client, err := simd.NewClient(address)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		status, err := client.Status(ctx)
		if err != nil {
			return &PreflightError{
				Message:  fmt.Sprintf("engine daemon at %s is not reachable: %v", address, err),
				Hint:     "Start one with quacksim engine serve",
				NextStep: "quacksim engine serve --host 0.0.0.0",
				Err:      err,
			}
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, status)
		}
		fmt.Println(renderSummary("Engine daemon "+address, [][2]string{
			{"Version", status.Version},
			{"Host", status.Hostname},
			{"Uptime", formatElapsed(status.Uptime)},
			{"Simulations", fmt.Sprintf("%d", status.Simulations)},
			{"Failures", fmt.Sprintf("%d", status.Failures)},
			{"Rejected", fmt.Sprintf("%d", status.Rejected)},
		}))
		if len(status.Gates) == 0 {
			return nil
		}

		fmt.Println()
		rows := make([][]string, 0, len(status.Gates))
		for _, gate := range status.Gates {
			rows = append(rows, []string{
				gate.Method[strings.LastIndex(gate.Method, "/")+1:],
				fmt.Sprintf("%d", gate.InFlight),
				fmt.Sprintf("%d", gate.Admitted),
				fmt.Sprintf("%d", gate.Throttled),
				fmt.Sprintf("%d", gate.Busy),
				fmt.Sprintf("%.1f", gate.Available),
			})
		}
		return writeTable(os.Stdout, []string{"METHOD", "IN FLIGHT", "ADMITTED", "THROTTLED", "BUSY", "TOKENS"}, rows)
	},
}

// buildEngine constructs the engine adapter selected by engine.kind. The
// returned close function is always non-nil.
func buildEngine(cfg *config.Config) (engine.Engine, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Engine.Kind {
	case config.EngineKindExec:
		eng, err := engine.NewExecEngine(cfg.Engine.Command, cfg.Engine.Args, engine.WithTimeout(cfg.Engine.Timeout))
		if err != nil {
			return nil, noop, engineConfigError(err)
		}
		return eng, noop, nil

	case config.EngineKindSSH:
		eng, err := engine.NewSSHEngine(engine.SSHOptions{
			Host:           cfg.Engine.SSH.Host,
			Port:           cfg.Engine.SSH.Port,
			User:           cfg.Engine.SSH.User,
			KeyPath:        cfg.Engine.SSH.KeyPath,
			KnownHostsPath: cfg.Engine.SSH.KnownHosts,
			Command:        cfg.Engine.Command,
			Args:           cfg.Engine.Args,
			Timeout:        cfg.Engine.Timeout,
		})
		if err != nil {
			return nil, noop, engineConfigError(err)
		}
		return eng, noop, nil

	case config.EngineKindRemote:
		client, err := simd.NewClient(cfg.Engine.Remote.Address)
		if err != nil {
			return nil, noop, engineConfigError(err)
		}
		return client, client.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown engine.kind %q", config.ErrInvalidConfig, cfg.Engine.Kind)
	}
}

// simulateLimits overlays non-zero flag values on the default Simulate
// limits, or returns nil when no flag was set.
func simulateLimits(rate float64, burst int, maxInFlight int64) *simd.Limits {
	if rate <= 0 && burst <= 0 && maxInFlight <= 0 {
		return nil
	}
	limits := simd.DefaultLimits[simd.SimulateMethod]
	if rate > 0 {
		limits.Rate = rate
	}
	if burst > 0 {
		limits.Burst = burst
	}
	if maxInFlight > 0 {
		limits.MaxInFlight = maxInFlight
	}
	return &limits
}

func engineConfigError(err error) error {
	return &PreflightError{
		Message:  fmt.Sprintf("engine is not configured: %v", err),
		Hint:     "Set engine.command (and engine.ssh.* or engine.remote.address for other kinds)",
		NextStep: "quacksim config show",
		Err:      fmt.Errorf("%w: %w", config.ErrInvalidConfig, err),
	}
}
