package core

import "fmt"

// Frame is one sample's worth of feature values paired with the column labels
// the model consumes. Frames are assembled fresh per invocation and discarded
// after inference; they are never persisted directly.
type Frame struct {
	columns []string
	values  []float64
}

// NewFrame binds the value at position i to the column named by columns[i].
// The column and value counts must agree.
func NewFrame(columns []string, values []float64) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("frame has %d columns but %d values", len(columns), len(values))
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		values:  append([]float64(nil), values...),
	}, nil
}

// NewSchemaFrame builds a frame over the shared feature schema from values in
// schema order.
func NewSchemaFrame(values []float64) (*Frame, error) {
	if len(values) != len(featureNames) {
		return nil, fmt.Errorf("expected %d feature values, got %d", len(featureNames), len(values))
	}
	return NewFrame(featureNames, values)
}

// ZeroFrame is the all-zero sample over the feature schema.
func ZeroFrame() *Frame {
	frame, err := NewSchemaFrame(make([]float64, len(featureNames)))
	if err != nil {
		panic(err) // schema-sized input, cannot fail
	}
	return frame
}

// FrameFromInputs builds a schema-ordered frame from named values. Every
// schema feature must be present and unknown names are rejected, so a column
// mismatch surfaces here instead of as a garbage prediction downstream.
func FrameFromInputs(inputs map[string]float64) (*Frame, error) {
	values := make([]float64, len(featureNames))
	for i, name := range featureNames {
		value, ok := inputs[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", name)
		}
		values[i] = value
	}

	if len(inputs) != len(featureNames) {
		known := make(map[string]struct{}, len(featureNames))
		for _, name := range featureNames {
			known[name] = struct{}{}
		}
		for name := range inputs {
			if _, ok := known[name]; !ok {
				return nil, fmt.Errorf("unknown feature %q", name)
			}
		}
	}

	return NewFrame(featureNames, values)
}

func (f *Frame) Columns() []string {
	return f.columns
}

func (f *Frame) Values() []float64 {
	return f.values
}

// Inputs returns the frame as a name → value map, the shape stored alongside
// prediction records.
func (f *Frame) Inputs() map[string]float64 {
	inputs := make(map[string]float64, len(f.columns))
	for i, name := range f.columns {
		inputs[name] = f.values[i]
	}
	return inputs
}
