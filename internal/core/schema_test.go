package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSchema(t *testing.T) {
	names := FeatureNames()
	require.Len(t, names, 30)
	assert.Equal(t, 30, NumFeatures())

	// The first and last entries anchor the trained column order.
	assert.Equal(t, "mean radius", names[0])
	assert.Equal(t, "fractal dimension error", names[19])
	assert.Equal(t, "worst fractal dimension", names[29])

	seen := make(map[string]struct{})
	for _, name := range names {
		_, dup := seen[name]
		assert.False(t, dup, "duplicate feature %q", name)
		seen[name] = struct{}{}
	}
}

func TestFeatureNamesReturnsCopy(t *testing.T) {
	names := FeatureNames()
	names[0] = "clobbered"
	assert.Equal(t, "mean radius", FeatureNames()[0])
}

func TestNewFrame(t *testing.T) {
	frame, err := NewFrame([]string{"a", "b"}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, frame.Columns())
	assert.Equal(t, []float64{1, 2}, frame.Values())

	_, err = NewFrame([]string{"a"}, []float64{1, 2})
	assert.Error(t, err)
}

func TestNewSchemaFrameOrderPreserving(t *testing.T) {
	values := make([]float64, NumFeatures())
	for i := range values {
		values[i] = float64(i)
	}

	frame, err := NewSchemaFrame(values)
	require.NoError(t, err)

	names := FeatureNames()
	for i, name := range frame.Columns() {
		assert.Equal(t, names[i], name)
		assert.Equal(t, float64(i), frame.Values()[i])
	}

	_, err = NewSchemaFrame(make([]float64, 29))
	assert.Error(t, err)
}

func TestZeroFrame(t *testing.T) {
	frame := ZeroFrame()
	require.Len(t, frame.Values(), NumFeatures())
	for _, v := range frame.Values() {
		assert.Zero(t, v)
	}
	assert.Equal(t, FeatureNames(), frame.Columns())
}

func TestFrameFromInputs(t *testing.T) {
	inputs := make(map[string]float64, NumFeatures())
	for i, name := range FeatureNames() {
		inputs[name] = float64(i)
	}

	frame, err := FrameFromInputs(inputs)
	require.NoError(t, err)
	for i := range frame.Values() {
		assert.Equal(t, float64(i), frame.Values()[i])
	}

	delete(inputs, "mean radius")
	_, err = FrameFromInputs(inputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing feature")

	inputs["mean radius"] = 0
	inputs["not a feature"] = 1
	_, err = FrameFromInputs(inputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feature")
}

func TestFrameInputsRoundTrip(t *testing.T) {
	values := make([]float64, NumFeatures())
	values[3] = 42.5

	frame, err := NewSchemaFrame(values)
	require.NoError(t, err)

	inputs := frame.Inputs()
	require.Len(t, inputs, NumFeatures())
	assert.Equal(t, 42.5, inputs["mean area"])
}
