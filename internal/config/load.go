package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. QUACKSIM_SIMULATION_AVERAGES.
const EnvPrefix = "QUACKSIM"

// Load reads configuration from path, or from the default search locations
// when path is empty. Missing config files are not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quacksim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath()
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Sequences.Dir = expandHome(cfg.Sequences.Dir)
	cfg.Engine.SSH.KeyPath = expandHome(cfg.Engine.SSH.KeyPath)
	cfg.Engine.SSH.KnownHosts = expandHome(cfg.Engine.SSH.KnownHosts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed reports which file Load would read for path.
func ConfigFileUsed(path string) string {
	if path != "" {
		return path
	}
	candidates := []string{"quacksim.yaml"}
	if dir, err := configDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "quacksim.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// DefaultDatabasePath returns the default SQLite location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "quacksim.db"
	}
	return filepath.Join(home, ".local", "share", "quacksim", "quacksim.db")
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quacksim"), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("simulation.number_points", cfg.Simulation.NumberPoints)
	v.SetDefault("simulation.averages", cfg.Simulation.Averages)
	v.SetDefault("simulation.noise", cfg.Simulation.Noise)
	v.SetDefault("simulation.number_isochromats", cfg.Simulation.NumberIsochromats)
	v.SetDefault("simulation.initial_magnetization", cfg.Simulation.InitialMagnetization)
	v.SetDefault("simulation.gradient", cfg.Simulation.Gradient)
	v.SetDefault("simulation.target_frequency", cfg.Simulation.TargetFrequency)
	v.SetDefault("simulation.apply_tx_phase", cfg.Simulation.ApplyTxPhase)
	v.SetDefault("simulation.max_parallel_runs", cfg.Simulation.MaxParallelRuns)

	v.SetDefault("hardware.length_coil", cfg.Hardware.LengthCoil)
	v.SetDefault("hardware.diameter_coil", cfg.Hardware.DiameterCoil)
	v.SetDefault("hardware.number_turns", cfg.Hardware.NumberTurns)
	v.SetDefault("hardware.q_factor_transmit", cfg.Hardware.QFactorTransmit)
	v.SetDefault("hardware.q_factor_receive", cfg.Hardware.QFactorReceive)
	v.SetDefault("hardware.power_amplifier_power", cfg.Hardware.PowerAmplifierPower)
	v.SetDefault("hardware.gain", cfg.Hardware.Gain)
	v.SetDefault("hardware.temperature", cfg.Hardware.Temperature)
	v.SetDefault("hardware.loss_tx", cfg.Hardware.LossTX)
	v.SetDefault("hardware.loss_rx", cfg.Hardware.LossRX)
	v.SetDefault("hardware.conversion_factor", cfg.Hardware.ConversionFactor)

	v.SetDefault("sample.name", cfg.Sample.Name)
	v.SetDefault("sample.density", cfg.Sample.Density)
	v.SetDefault("sample.molar_mass", cfg.Sample.MolarMass)
	v.SetDefault("sample.resonant_frequency", cfg.Sample.ResonantFrequency)
	v.SetDefault("sample.gamma", cfg.Sample.Gamma)
	v.SetDefault("sample.nuclear_spin", cfg.Sample.NuclearSpin)
	v.SetDefault("sample.spin_factor", cfg.Sample.SpinFactor)
	v.SetDefault("sample.powder_factor", cfg.Sample.PowderFactor)
	v.SetDefault("sample.filling_factor", cfg.Sample.FillingFactor)
	v.SetDefault("sample.t1", cfg.Sample.T1)
	v.SetDefault("sample.t2", cfg.Sample.T2)
	v.SetDefault("sample.t2_star", cfg.Sample.T2Star)
	v.SetDefault("sample.atom_density", cfg.Sample.AtomDensity)
	v.SetDefault("sample.sample_volume", cfg.Sample.SampleVolume)
	v.SetDefault("sample.sample_length", cfg.Sample.SampleLength)
	v.SetDefault("sample.sample_diameter", cfg.Sample.SampleDiameter)

	v.SetDefault("engine.kind", cfg.Engine.Kind)
	v.SetDefault("engine.command", cfg.Engine.Command)
	v.SetDefault("engine.args", cfg.Engine.Args)
	v.SetDefault("engine.timeout", cfg.Engine.Timeout)
	v.SetDefault("engine.ssh.host", cfg.Engine.SSH.Host)
	v.SetDefault("engine.ssh.port", cfg.Engine.SSH.Port)
	v.SetDefault("engine.ssh.user", cfg.Engine.SSH.User)
	v.SetDefault("engine.ssh.key_path", cfg.Engine.SSH.KeyPath)
	v.SetDefault("engine.ssh.known_hosts", cfg.Engine.SSH.KnownHosts)
	v.SetDefault("engine.remote.address", cfg.Engine.Remote.Address)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("sequences.dir", cfg.Sequences.Dir)
}
