// Package aggregate keeps running statistics for a stream of values, with
// optional percentiles from a DDSketch. The store uses it to summarise the
// cost of its flush cycles.
package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// DefaultAccuracy is the relative accuracy of the percentile sketch.
const DefaultAccuracy = 0.01

// Summary is a point-in-time view of an aggregate.
type Summary struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64

	// Percentiles are zero unless enabled and Count > 0.
	P50 float64
	P90 float64
	P99 float64
}

// StreamingAggregate maintains running statistics for one named stream.
type StreamingAggregate struct {
	mu sync.Mutex

	name     string
	accuracy float64

	count int64
	sum   float64
	min   float64
	max   float64

	// DDSketch for percentiles (nil if disabled)
	sketch *ddsketch.DDSketch
}

// New creates an aggregate. Percentiles are tracked when enablePercentile
// is set.
func New(name string, enablePercentile bool) *StreamingAggregate {
	if !enablePercentile {
		return newAggregate(name, 0)
	}
	return newAggregate(name, DefaultAccuracy)
}

// NewWithAccuracy creates an aggregate with a custom percentile accuracy.
func NewWithAccuracy(name string, accuracy float64) *StreamingAggregate {
	return newAggregate(name, accuracy)
}

func newAggregate(name string, accuracy float64) *StreamingAggregate {
	a := &StreamingAggregate{
		name:     name,
		accuracy: accuracy,
		min:      math.MaxFloat64,
		max:      -math.MaxFloat64,
	}
	a.sketch = a.newSketch()
	return a
}

func (a *StreamingAggregate) newSketch() *ddsketch.DDSketch {
	if a.accuracy <= 0 {
		return nil
	}
	sketch, err := ddsketch.NewDefaultDDSketch(a.accuracy)
	if err != nil {
		return nil
	}
	return sketch
}

// Name returns the stream name.
func (a *StreamingAggregate) Name() string {
	return a.name
}

// Add records one value.
func (a *StreamingAggregate) Add(value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	a.sum += value
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.sketch != nil {
		_ = a.sketch.Add(value)
	}
}

// Count returns the number of values added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Summary returns the current statistics.
func (a *StreamingAggregate) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{Count: a.count, Sum: a.sum}
	if a.count == 0 {
		return s
	}

	s.Min = a.min
	s.Max = a.max
	s.Avg = a.sum / float64(a.count)

	if a.sketch != nil {
		s.P50, _ = a.sketch.GetValueAtQuantile(0.50)
		s.P90, _ = a.sketch.GetValueAtQuantile(0.90)
		s.P99, _ = a.sketch.GetValueAtQuantile(0.99)
	}
	return s
}

// Reset forgets all values.
func (a *StreamingAggregate) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count = 0
	a.sum = 0
	a.min = math.MaxFloat64
	a.max = -math.MaxFloat64

	// DDSketch has no Clear method
	a.sketch = a.newSketch()
}

// Merge folds other into a.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) {
	if other == nil || other == a {
		return
	}

	a.mu.Lock()
	other.mu.Lock()
	defer a.mu.Unlock()
	defer other.mu.Unlock()

	if other.count == 0 {
		return
	}

	a.count += other.count
	a.sum += other.sum
	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.sketch != nil && other.sketch != nil {
		_ = a.sketch.MergeWith(other.sketch)
	}
}
