package aggregate

import (
	"math"
	"sync"
	"testing"
)

func TestStreamingAggregate_Basic(t *testing.T) {
	agg := New("cycle_quanta", false)

	if agg.Count() != 0 {
		t.Error("new aggregate should be empty")
	}
	if s := agg.Summary(); s.Min != 0 || s.Max != 0 {
		t.Errorf("empty summary should be zero: %+v", s)
	}

	agg.Add(10.0)
	agg.Add(20.0)
	agg.Add(30.0)

	s := agg.Summary()
	if s.Count != 3 {
		t.Errorf("expected count=3, got %d", s.Count)
	}
	if s.Sum != 60.0 {
		t.Errorf("expected sum=60, got %f", s.Sum)
	}
	if s.Min != 10.0 || s.Max != 30.0 {
		t.Errorf("expected min=10 max=30, got %f/%f", s.Min, s.Max)
	}
	if math.Abs(s.Avg-20.0) > 0.001 {
		t.Errorf("expected avg=20, got %f", s.Avg)
	}
	if s.P50 != 0 {
		t.Error("should not have percentiles")
	}
	if agg.Name() != "cycle_quanta" {
		t.Errorf("Name = %q", agg.Name())
	}
}

func TestStreamingAggregate_WithPercentiles(t *testing.T) {
	agg := New("cycle_ms", true)

	for i := 1; i <= 100; i++ {
		agg.Add(float64(i))
	}

	s := agg.Summary()
	if math.Abs(s.P50-50.0) > 2.0 {
		t.Errorf("expected P50 near 50, got %f", s.P50)
	}
	if math.Abs(s.P90-90.0) > 2.0 {
		t.Errorf("expected P90 near 90, got %f", s.P90)
	}
	if math.Abs(s.P99-99.0) > 2.0 {
		t.Errorf("expected P99 near 99, got %f", s.P99)
	}
}

func TestStreamingAggregate_Reset(t *testing.T) {
	agg := New("x", true)
	agg.Add(10.0)
	agg.Add(20.0)

	agg.Reset()
	if agg.Count() != 0 {
		t.Errorf("count after reset = %d", agg.Count())
	}

	agg.Add(5)
	if s := agg.Summary(); s.Min != 5 || s.Max != 5 {
		t.Errorf("stale min/max after reset: %+v", s)
	}
}

func TestStreamingAggregate_Merge(t *testing.T) {
	a := New("a", true)
	b := New("b", true)

	a.Add(1)
	a.Add(2)
	b.Add(10)

	a.Merge(b)
	a.Merge(nil)
	a.Merge(a)

	s := a.Summary()
	if s.Count != 3 || s.Max != 10 || s.Min != 1 {
		t.Errorf("merged summary = %+v", s)
	}
}

func TestStreamingAggregate_Concurrent(t *testing.T) {
	agg := New("concurrent", true)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				agg.Add(float64(i))
			}
		}()
	}
	wg.Wait()

	if agg.Count() != 8000 {
		t.Errorf("expected count=8000, got %d", agg.Count())
	}
}

func BenchmarkStreamingAggregate_AddWithPercentile(b *testing.B) {
	agg := New("bench", true)
	for i := 0; i < b.N; i++ {
		agg.Add(float64(i % 1000))
	}
}
