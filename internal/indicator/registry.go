package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// IndicatorRegistry manages the indicators of one market.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(key string) (Indicator, error)
	ListIndicators() []string
	RemoveIndicator(key string) error
	// Compute evaluates every registered indicator against the series.
	Compute(series *types.CandleSeries) Snapshot
}

// Snapshot holds the values that computed successfully and the failures
// that callers should log and skip.
type Snapshot struct {
	Values   map[string]float64
	Failures []Result
}

// Get returns a value and whether it was computed.
func (s Snapshot) Get(key string) (float64, bool) {
	v, ok := s.Values[key]

	return v, ok
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	indicators map[string]Indicator
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates a new indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[string]Indicator),
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := indicator.Key()
	if _, exists := r.indicators[key]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", key)
	}

	r.indicators[key] = indicator

	return nil
}

// GetIndicator retrieves an indicator by key.
func (r *IndicatorRegistryV1) GetIndicator(key string) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[key]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", key)
	}

	return indicator, nil
}

// ListIndicators returns the registered keys in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.indicators))
	for key := range r.indicators {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[key]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", key)
	}

	delete(r.indicators, key)

	return nil
}

// Compute evaluates every indicator in key order.
func (r *IndicatorRegistryV1) Compute(series *types.CandleSeries) Snapshot {
	snapshot := Snapshot{Values: make(map[string]float64)}

	for _, key := range r.ListIndicators() {
		ind, err := r.GetIndicator(key)
		if err != nil {
			continue
		}

		result := ind.Compute(series)
		if !result.OK() {
			snapshot.Failures = append(snapshot.Failures, result)

			continue
		}

		snapshot.Values[result.Key] = result.Value
		for name, v := range result.Extras {
			snapshot.Values[result.Key+"_"+name] = v
		}
	}

	return snapshot
}

// MaxRequiredCandles returns the longest warm-up among the registered indicators.
func MaxRequiredCandles(registry IndicatorRegistry) int {
	required := 0

	for _, key := range registry.ListIndicators() {
		ind, err := registry.GetIndicator(key)
		if err != nil {
			continue
		}

		required = max(required, ind.RequiredCandles())
	}

	return required
}
