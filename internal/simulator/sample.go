package simulator

import (
	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/engine"
)

// SampleFromConfig marshals the physical sample description.
func SampleFromConfig(cfg config.SampleConfig) engine.Sample {
	return engine.Sample{
		Name:              cfg.Name,
		Density:           cfg.Density,
		MolarMass:         cfg.MolarMass,
		ResonantFrequency: cfg.ResonantFrequency,
		Gamma:             cfg.Gamma,
		NuclearSpin:       cfg.NuclearSpin,
		SpinFactor:        cfg.SpinFactor,
		PowderFactor:      cfg.PowderFactor,
		FillingFactor:     cfg.FillingFactor,
		T1:                cfg.T1,
		T2:                cfg.T2,
		T2Star:            cfg.T2Star,
		AtomDensity:       cfg.AtomDensity,
		SampleVolume:      cfg.SampleVolume,
		SampleLength:      cfg.SampleLength,
		SampleDiameter:    cfg.SampleDiameter,
	}
}

// ParamsFromConfig collects the engine's hardware and noise settings.
func ParamsFromConfig(cfg *config.Config) engine.Params {
	return engine.Params{
		NumberIsochromats:    cfg.Simulation.NumberIsochromats,
		InitialMagnetization: cfg.Simulation.InitialMagnetization,
		Gradient:             cfg.Simulation.Gradient,
		Noise:                cfg.Simulation.Noise,
		LengthCoil:           cfg.Hardware.LengthCoil,
		DiameterCoil:         cfg.Hardware.DiameterCoil,
		NumberTurns:          cfg.Hardware.NumberTurns,
		QFactorTransmit:      cfg.Hardware.QFactorTransmit,
		QFactorReceive:       cfg.Hardware.QFactorReceive,
		PowerAmplifierPower:  cfg.Hardware.PowerAmplifierPower,
		Gain:                 cfg.Hardware.Gain,
		Temperature:          cfg.Hardware.Temperature,
		Averages:             cfg.Simulation.Averages,
		LossTX:               cfg.Hardware.LossTX,
		LossRX:               cfg.Hardware.LossRX,
		ConversionFactor:     cfg.Hardware.ConversionFactor,
	}
}
