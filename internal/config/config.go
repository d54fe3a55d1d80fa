// Package config provides typed configuration for quacksim.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/nqrduck/quacksim/internal/logging"
)

// ErrInvalidConfig is returned when a configuration value is missing or out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Hardware   HardwareConfig   `mapstructure:"hardware" yaml:"hardware"`
	Sample     SampleConfig     `mapstructure:"sample" yaml:"sample"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Logging    logging.Config   `mapstructure:"logging" yaml:"logging"`
	Sequences  SequencesConfig  `mapstructure:"sequences" yaml:"sequences"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	// NumberPoints is the target sample count used to derive the dwell time.
	NumberPoints int `mapstructure:"number_points" yaml:"number_points"`

	// Averages is passed to the engine, which accumulates that many repetitions.
	Averages int `mapstructure:"averages" yaml:"averages"`

	// Noise level in microvolts.
	Noise float64 `mapstructure:"noise" yaml:"noise"`

	NumberIsochromats    int     `mapstructure:"number_isochromats" yaml:"number_isochromats"`
	InitialMagnetization float64 `mapstructure:"initial_magnetization" yaml:"initial_magnetization"`
	Gradient             float64 `mapstructure:"gradient" yaml:"gradient"`

	// TargetFrequency in Hz; only used for naming measurements.
	TargetFrequency float64 `mapstructure:"target_frequency" yaml:"target_frequency"`

	// ApplyTxPhase fills the pulse phase array from per-event transmit phases.
	// When false the phase array is all zeros.
	ApplyTxPhase bool `mapstructure:"apply_tx_phase" yaml:"apply_tx_phase"`

	// MaxParallelRuns bounds concurrent engine invocations across phase cycles.
	MaxParallelRuns int `mapstructure:"max_parallel_runs" yaml:"max_parallel_runs"`
}

// HardwareConfig describes the probe coil and signal chain.
type HardwareConfig struct {
	LengthCoil          float64 `mapstructure:"length_coil" yaml:"length_coil"`
	DiameterCoil        float64 `mapstructure:"diameter_coil" yaml:"diameter_coil"`
	NumberTurns         float64 `mapstructure:"number_turns" yaml:"number_turns"`
	QFactorTransmit     float64 `mapstructure:"q_factor_transmit" yaml:"q_factor_transmit"`
	QFactorReceive      float64 `mapstructure:"q_factor_receive" yaml:"q_factor_receive"`
	PowerAmplifierPower float64 `mapstructure:"power_amplifier_power" yaml:"power_amplifier_power"`
	Gain                float64 `mapstructure:"gain" yaml:"gain"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature"`
	LossTX              float64 `mapstructure:"loss_tx" yaml:"loss_tx"`
	LossRX              float64 `mapstructure:"loss_rx" yaml:"loss_rx"`
	ConversionFactor    float64 `mapstructure:"conversion_factor" yaml:"conversion_factor"`
}

// SampleConfig holds the physical constants of the sample.
// AtomDensity, SampleVolume, SampleLength and SampleDiameter are optional; zero means unset.
type SampleConfig struct {
	Name              string  `mapstructure:"name" yaml:"name"`
	Density           float64 `mapstructure:"density" yaml:"density"`
	MolarMass         float64 `mapstructure:"molar_mass" yaml:"molar_mass"`
	ResonantFrequency float64 `mapstructure:"resonant_frequency" yaml:"resonant_frequency"`
	Gamma             float64 `mapstructure:"gamma" yaml:"gamma"`
	NuclearSpin       float64 `mapstructure:"nuclear_spin" yaml:"nuclear_spin"`
	SpinFactor        float64 `mapstructure:"spin_factor" yaml:"spin_factor"`
	PowderFactor      float64 `mapstructure:"powder_factor" yaml:"powder_factor"`
	FillingFactor     float64 `mapstructure:"filling_factor" yaml:"filling_factor"`
	T1                float64 `mapstructure:"t1" yaml:"t1"`
	T2                float64 `mapstructure:"t2" yaml:"t2"`
	T2Star            float64 `mapstructure:"t2_star" yaml:"t2_star"`
	AtomDensity       float64 `mapstructure:"atom_density" yaml:"atom_density"`
	SampleVolume      float64 `mapstructure:"sample_volume" yaml:"sample_volume"`
	SampleLength      float64 `mapstructure:"sample_length" yaml:"sample_length"`
	SampleDiameter    float64 `mapstructure:"sample_diameter" yaml:"sample_diameter"`
}

// Engine kinds.
const (
	EngineKindExec   = "exec"
	EngineKindSSH    = "ssh"
	EngineKindRemote = "remote"
)

// EngineConfig selects and configures the simulation engine adapter.
type EngineConfig struct {
	Kind    string        `mapstructure:"kind" yaml:"kind"`
	Command string        `mapstructure:"command" yaml:"command"`
	Args    []string      `mapstructure:"args" yaml:"args"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SSH     SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
}

// SSHConfig configures the remote-command engine.
type SSHConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	User       string `mapstructure:"user" yaml:"user"`
	KeyPath    string `mapstructure:"key_path" yaml:"key_path"`
	KnownHosts string `mapstructure:"known_hosts" yaml:"known_hosts"`
}

// RemoteConfig points at a running engine daemon.
type RemoteConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// DatabaseConfig locates the measurement history database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SequencesConfig locates user sequence files.
type SequencesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DefaultConfig returns the BiPh3 reference setup.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			NumberPoints:         8192,
			Averages:             100,
			Noise:                2,
			NumberIsochromats:    1000,
			InitialMagnetization: 1,
			Gradient:             1,
			TargetFrequency:      83.56e6,
			MaxParallelRuns:      1,
		},
		Hardware: HardwareConfig{
			LengthCoil:          6e-3,
			DiameterCoil:        3e-3,
			NumberTurns:         9,
			QFactorTransmit:     80,
			QFactorReceive:      80,
			PowerAmplifierPower: 110,
			Gain:                6000,
			Temperature:         77,
			LossTX:              25,
			LossRX:              25,
			ConversionFactor:    2884,
		},
		Sample: SampleConfig{
			Name:              "BiPh3",
			Density:           1.585e6,
			MolarMass:         440.3,
			ResonantFrequency: 83.56e6,
			Gamma:             4.342e7,
			NuclearSpin:       9.0 / 2.0,
			SpinFactor:        2,
			PowderFactor:      0.75,
			FillingFactor:     0.7,
			T1:                83.5e-5,
			T2:                396e-6,
			T2Star:            50e-6,
		},
		Engine: EngineConfig{
			Kind:    EngineKindExec,
			Timeout: 10 * time.Minute,
			SSH: SSHConfig{
				Port: 22,
			},
			Remote: RemoteConfig{
				Address: "127.0.0.1:50151",
			},
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks numeric settings that the simulator relies on.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	sim := c.Simulation
	if sim.NumberPoints <= 0 {
		return fmt.Errorf("%w: simulation.number_points must be > 0, got %d", ErrInvalidConfig, sim.NumberPoints)
	}
	if sim.Averages <= 0 {
		return fmt.Errorf("%w: simulation.averages must be > 0, got %d", ErrInvalidConfig, sim.Averages)
	}
	if sim.NumberIsochromats <= 0 {
		return fmt.Errorf("%w: simulation.number_isochromats must be > 0, got %d", ErrInvalidConfig, sim.NumberIsochromats)
	}
	if sim.Noise < 0 {
		return fmt.Errorf("%w: simulation.noise must be >= 0, got %g", ErrInvalidConfig, sim.Noise)
	}
	if sim.MaxParallelRuns < 0 {
		return fmt.Errorf("%w: simulation.max_parallel_runs must be >= 0, got %d", ErrInvalidConfig, sim.MaxParallelRuns)
	}

	hw := c.Hardware
	positive := []struct {
		key   string
		value float64
	}{
		{"hardware.length_coil", hw.LengthCoil},
		{"hardware.diameter_coil", hw.DiameterCoil},
		{"hardware.number_turns", hw.NumberTurns},
		{"hardware.q_factor_transmit", hw.QFactorTransmit},
		{"hardware.q_factor_receive", hw.QFactorReceive},
		{"hardware.temperature", hw.Temperature},
		{"sample.density", c.Sample.Density},
		{"sample.molar_mass", c.Sample.MolarMass},
		{"sample.resonant_frequency", c.Sample.ResonantFrequency},
		{"sample.gamma", c.Sample.Gamma},
		{"sample.nuclear_spin", c.Sample.NuclearSpin},
		{"sample.t1", c.Sample.T1},
		{"sample.t2", c.Sample.T2},
		{"sample.t2_star", c.Sample.T2Star},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %g", ErrInvalidConfig, p.key, p.value)
		}
	}

	switch c.Engine.Kind {
	case EngineKindExec, EngineKindSSH, EngineKindRemote:
	default:
		return fmt.Errorf("%w: unknown engine.kind %q", ErrInvalidConfig, c.Engine.Kind)
	}

	return nil
}
