// Package equalizer provides biquad filters based on Robert Bristow-Johnson's
// audio EQ cookbook. The capture engine uses the low-pass filter for
// anti-aliasing ahead of decimation; the high-pass filter is available for
// rumble removal.
package equalizer

import (
	"fmt"
	"math"
	"sync"
)

// FilterName identifies the kind of digital filter.
type FilterName int

const (
	Undefined FilterName = iota
	LowPass
	HighPass
)

// Filter holds the digital filter coefficients and per-pass state.
type Filter struct {
	name FilterName

	// state variables, one set per pass
	in1  []float64
	in2  []float64
	out1 []float64
	out2 []float64

	// normalized coefficients
	b0a0, b1a0, b2a0, a1a0, a2a0 float64

	passes int
}

// IsZero returns true when the filter is not initialized.
func (f *Filter) IsZero() bool {
	return f.name == Undefined
}

// newFilter builds a filter from raw cookbook coefficients.
func newFilter(name FilterName, a0, a1, a2, b0, b1, b2 float64, passes int) *Filter {
	return &Filter{
		name:   name,
		passes: passes,
		in1:    make([]float64, passes),
		in2:    make([]float64, passes),
		out1:   make([]float64, passes),
		out2:   make([]float64, passes),
		b0a0:   b0 / a0,
		b1a0:   b1 / a0,
		b2a0:   b2 / a0,
		a1a0:   a1 / a0,
		a2a0:   a2 / a0,
	}
}

// NewLowPass returns a low-pass filter.
//
//   - sampleRate ... sample rate in Hz, e.g. 48000.0
//   - frequency ... cut-off frequency in Hz
//   - q ... Q value, must be greater than 0
//   - passes ... number of passes (1 = 12dB/oct, 2 = 24dB/oct, 4 = 48dB/oct)
func NewLowPass(sampleRate, frequency, q float64, passes int) (*Filter, error) {
	if passes < 1 {
		return nil, fmt.Errorf("passes must be 1 or greater")
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, fmt.Errorf("cut-off frequency %g out of range for sample rate %g", frequency, sampleRate)
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)

	return newFilter(
		LowPass,
		1.0+alpha,
		-2.0*math.Cos(w0),
		1.0-alpha,
		(1.0-math.Cos(w0))/2.0,
		1.0-math.Cos(w0),
		(1.0-math.Cos(w0))/2.0,
		passes,
	), nil
}

// NewHighPass returns a high-pass filter. Parameters as NewLowPass.
func NewHighPass(sampleRate, frequency, q float64, passes int) (*Filter, error) {
	if passes < 1 {
		return nil, fmt.Errorf("passes must be 1 or greater")
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, fmt.Errorf("cut-off frequency %g out of range for sample rate %g", frequency, sampleRate)
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)

	return newFilter(
		HighPass,
		1.0+alpha,
		-2.0*math.Cos(w0),
		1.0-alpha,
		(1.0+math.Cos(w0))/2.0,
		-1.0*(1.0+math.Cos(w0)),
		(1.0+math.Cos(w0))/2.0,
		passes,
	), nil
}

// ApplyBatch applies the filter to a batch of samples in place.
func (f *Filter) ApplyBatch(input []float64) {
	for p := range f.passes {
		for i := range input {
			output := f.b0a0*input[i] + f.b1a0*f.in1[p] + f.b2a0*f.in2[p] -
				f.a1a0*f.out1[p] - f.a2a0*f.out2[p]

			f.in2[p] = f.in1[p]
			f.in1[p] = input[i]
			f.out2[p] = f.out1[p]
			f.out1[p] = output

			input[i] = output
		}
	}
}

// Reset clears the filter state so the next batch starts from silence.
func (f *Filter) Reset() {
	for p := range f.passes {
		f.in1[p] = 0
		f.in2[p] = 0
		f.out1[p] = 0
		f.out2[p] = 0
	}
}

// FilterChain applies a sequence of filters.
type FilterChain struct {
	filters []*Filter
	mu      sync.RWMutex
}

// NewFilterChain creates an empty FilterChain.
func NewFilterChain() *FilterChain {
	return &FilterChain{}
}

// AddFilter adds a filter to the chain.
func (fc *FilterChain) AddFilter(f *Filter) error {
	if f == nil || f.IsZero() {
		return fmt.Errorf("cannot add nil or uninitialized filter")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.filters = append(fc.filters, f)
	return nil
}

// Length returns the number of filters in the chain.
func (fc *FilterChain) Length() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.filters)
}

// ApplyBatch applies all filters in the chain to the input in place.
func (fc *FilterChain) ApplyBatch(input []float64) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	for _, f := range fc.filters {
		f.ApplyBatch(input)
	}
}

// Reset clears the state of every filter in the chain.
func (fc *FilterChain) Reset() {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	for _, f := range fc.filters {
		f.Reset()
	}
}
