package stats

import (
	"sync"
	"time"
)

// TimeSeries manages one append-only series of values with timestamps.
// Used for per-leg close prices and the recorded portfolio value curve.
type TimeSeries struct {
	Name       string
	Data       []float64
	Timestamps []int64 // Unix nano timestamps
	MaxLength  int     // 0 means unbounded
	mu         sync.RWMutex
}

// NewTimeSeries creates a new time series. maxLength <= 0 keeps all points.
func NewTimeSeries(name string, maxLength int) *TimeSeries {
	capHint := maxLength
	if capHint <= 0 {
		capHint = 1024
	}
	return &TimeSeries{
		Name:       name,
		Data:       make([]float64, 0, capHint),
		Timestamps: make([]int64, 0, capHint),
		MaxLength:  maxLength,
	}
}

// Append adds a new data point (thread safe).
func (ts *TimeSeries) Append(value float64, timestamp int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Data = append(ts.Data, value)
	ts.Timestamps = append(ts.Timestamps, timestamp)

	if ts.MaxLength > 0 && len(ts.Data) > ts.MaxLength {
		ts.Data = ts.Data[1:]
		ts.Timestamps = ts.Timestamps[1:]
	}
}

// AppendNow adds a data point with the current timestamp.
func (ts *TimeSeries) AppendNow(value float64) {
	ts.Append(value, time.Now().UnixNano())
}

// GetLast returns the most recent n data points.
func (ts *TimeSeries) GetLast(n int) []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if n <= 0 || n > len(ts.Data) {
		n = len(ts.Data)
	}

	if n == 0 {
		return []float64{}
	}

	result := make([]float64, n)
	copy(result, ts.Data[len(ts.Data)-n:])
	return result
}

// Get returns size data points ending ago bars back (ago=0 includes the
// current bar). Mirrors the host lookback window query. Returns nil when
// fewer than size+ago points exist.
func (ts *TimeSeries) Get(size, ago int) []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if size <= 0 || ago < 0 || len(ts.Data) < size+ago {
		return nil
	}

	end := len(ts.Data) - ago
	result := make([]float64, size)
	copy(result, ts.Data[end-size:end])
	return result
}

// At returns the value ago bars back (ago=0 is the current bar).
func (ts *TimeSeries) At(ago int) (float64, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	idx := len(ts.Data) - 1 - ago
	if ago < 0 || idx < 0 {
		return 0, false
	}
	return ts.Data[idx], true
}

// GetAll returns a copy of all data points.
func (ts *TimeSeries) GetAll() []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	result := make([]float64, len(ts.Data))
	copy(result, ts.Data)
	return result
}

// Len returns the current number of data points.
func (ts *TimeSeries) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.Data)
}

// Last returns the most recent data point.
func (ts *TimeSeries) Last() (float64, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if len(ts.Data) == 0 {
		return 0, false
	}
	return ts.Data[len(ts.Data)-1], true
}

// Stats computes rolling window statistics over the last period points.
func (ts *TimeSeries) Stats(period int) RollingWindowStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return CalculateRollingStats(ts.Data, period)
}

// Clear empties the series.
func (ts *TimeSeries) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	capHint := ts.MaxLength
	if capHint <= 0 {
		capHint = 1024
	}
	ts.Data = make([]float64, 0, capHint)
	ts.Timestamps = make([]int64, 0, capHint)
}
