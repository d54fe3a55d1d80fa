package sequence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleCount(t *testing.T) {
	require.Equal(t, 28, SampleCount(3e-6, 108e-6/1000))
	require.Equal(t, 0, SampleCount(0, 1e-7))
	require.Equal(t, 0, SampleCount(1e-6, 0))
	require.Equal(t, 10, SampleCount(1e-6, 1e-7))
}

func TestShapesReturnSampleCount(t *testing.T) {
	shapes := []Shape{RectFunction{}, DefaultSinc(), DefaultGaussian()}
	for _, shape := range shapes {
		t.Run(shape.Name(), func(t *testing.T) {
			require.Len(t, shape.Amplitude(3e-6, 1e-7), 30)
			require.Len(t, shape.Amplitude(1e-7, 1e-7), 1)
			require.Empty(t, shape.Amplitude(0, 1e-7))
		})
	}
}

func TestRectIsFlat(t *testing.T) {
	for _, v := range (RectFunction{}).Amplitude(1e-6, 1e-8) {
		require.Equal(t, 1.0, v)
	}
}

func TestGaussianPeaksInCentre(t *testing.T) {
	samples := DefaultGaussian().Amplitude(1.01e-6, 1e-8) // 101 samples, centre index 50
	require.Len(t, samples, 101)
	require.InDelta(t, 1.0, samples[50], 1e-12)
	require.InDelta(t, math.Exp(-0.5*math.Pi*math.Pi), samples[0], 1e-12)
	require.InDelta(t, samples[0], samples[100], 1e-12)
}

func TestSincCentreIsOne(t *testing.T) {
	samples := DefaultSinc().Amplitude(1.01e-6, 1e-8)
	require.InDelta(t, 1.0, samples[50], 1e-12)
}

func TestShapeByName(t *testing.T) {
	for _, name := range []string{"", "rect", "RECT", "sinc", "gaussian"} {
		shape, err := ShapeByName(name)
		require.NoError(t, err, name)
		require.NotNil(t, shape)
	}
	_, err := ShapeByName("triangle")
	require.Error(t, err)
}
