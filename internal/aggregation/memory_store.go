package aggregation

import (
	"context"
	"sync"
)

type window struct {
	count  int
	values map[string]float64
}

// MemoryCounterStore mirrors the Redis store's semantics in process memory.
// Used by tests and by single-node deployments that run without Redis.
type MemoryCounterStore struct {
	mu      sync.Mutex
	minutes map[string]*window
	hours   map[string]*window
}

// NewMemoryCounterStore builds an empty store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		minutes: make(map[string]*window),
		hours:   make(map[string]*window),
	}
}

// Accumulate folds one sample under a single lock, matching the atomicity of
// the Lua script.
func (s *MemoryCounterStore) Accumulate(_ context.Context, deviceID string, fields map[string]float64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	minute := s.minutes[deviceID]
	if minute == nil {
		minute = &window{values: make(map[string]float64)}
		s.minutes[deviceID] = minute
	}
	for name, value := range fields {
		minute.values[name] += value
	}
	minute.count++
	if minute.count < SamplesPerMinute {
		return Result{}, nil
	}

	hour := s.hours[deviceID]
	if hour == nil {
		hour = &window{values: make(map[string]float64)}
		s.hours[deviceID] = hour
	}
	for name, sum := range minute.values {
		hour.values[name] += sum / float64(minute.count)
	}
	hour.count++
	delete(s.minutes, deviceID)
	if hour.count < MinutesPerHour {
		return Result{MinuteClosed: true}, nil
	}

	res := Result{
		MinuteClosed: true,
		HourClosed:   true,
		MinuteCount:  minute.count,
		HourCount:    hour.count,
		HourSums:     hour.values,
	}
	delete(s.hours, deviceID)
	return res, nil
}

// MinuteCount reports the open minute window's sample count for a device.
// Test helper.
func (s *MemoryCounterStore) MinuteCount(deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.minutes[deviceID]; w != nil {
		return w.count
	}
	return 0
}

// HourCount reports the open hour window's minute count for a device.
// Test helper.
func (s *MemoryCounterStore) HourCount(deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.hours[deviceID]; w != nil {
		return w.count
	}
	return 0
}
