// Package window holds the bounded time series that feed every chart of the
// dashboard.
package window

import (
	"encoding/json"
	"maps"
	"sync"
	"time"
)

// DefaultCapacity keeps the incoming point plus the 20 before it.
const DefaultCapacity = 21

// TimeFormat is the wall-clock layout used for point timestamps.
const TimeFormat = "15:04:05"

// Buffer is an append-only series capped at a fixed length. Once full, every
// append evicts the oldest point. Points are kept in insertion order only; a
// late point with an earlier timestamp is still appended at the end.
//
// A Buffer has a single writer but may be read concurrently.
type Buffer[T any] struct {
	mu       sync.RWMutex
	capacity int
	points   []T
}

// New returns an empty buffer holding at most capacity points. A non-positive
// capacity falls back to DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer[T]{
		capacity: capacity,
		points:   make([]T, 0, capacity),
	}
}

func (b *Buffer[T]) Append(point T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.points) == b.capacity {
		copy(b.points, b.points[1:])
		b.points = b.points[:len(b.points)-1]
	}
	b.points = append(b.points, point)
}

// Cloner is implemented by points that own reference data. Snapshot clones
// such points so readers never share them with the buffer.
type Cloner[T any] interface {
	Clone() T
}

// Snapshot returns a copy of the current contents, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, len(b.points))
	for i, p := range b.points {
		if c, ok := any(p).(Cloner[T]); ok {
			p = c.Clone()
		}
		out[i] = p
	}

	return out
}

// Point is one sample of a chart series: a display timestamp and a set of
// named values. It encodes to a flat JSON object, e.g.
// {"timestamp":"10:04:05","accuracy":0.8,"trust":0.91}.
type Point struct {
	Timestamp string
	Values    map[string]float64
}

// NewPoint stamps values with the wall-clock time at.
func NewPoint(at time.Time, values map[string]float64) Point {
	return Point{
		Timestamp: at.Format(TimeFormat),
		Values:    maps.Clone(values),
	}
}

func (p Point) Clone() Point {
	return Point{
		Timestamp: p.Timestamp,
		Values:    maps.Clone(p.Values),
	}
}

// Value returns the named value of the point.
func (p Point) Value(name string) (float64, bool) {
	v, ok := p.Values[name]

	return v, ok
}

func (p Point) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		flat[k] = v
	}
	flat["timestamp"] = p.Timestamp

	return json.Marshal(flat)
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	p.Values = make(map[string]float64, len(flat))
	for k, raw := range flat {
		if k == "timestamp" {
			if err := json.Unmarshal(raw, &p.Timestamp); err != nil {
				return err
			}

			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		p.Values[k] = v
	}

	return nil
}
