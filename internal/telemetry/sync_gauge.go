package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

// Int64SyncGauge is an observable gauge holding the last value set for every
// attribute set. The values are reported on each collection.
type Int64SyncGauge struct {
	mu     sync.RWMutex
	values map[attribute.Distinct]gaugePoint
}

type gaugePoint struct {
	value int64
	attrs attribute.Set
}

func NewInt64SyncGauge(meter api.Meter, name string, options ...api.Int64ObservableGaugeOption) (*Int64SyncGauge, error) {
	g := &Int64SyncGauge{values: make(map[attribute.Distinct]gaugePoint)}
	options = append(options, api.WithInt64Callback(g.observe))
	if _, err := meter.Int64ObservableGauge(name, options...); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Int64SyncGauge) observe(_ context.Context, observer api.Int64Observer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range g.values {
		observer.Observe(p.value, api.WithAttributeSet(p.attrs))
	}
	return nil
}

func (g *Int64SyncGauge) Set(value int64, attrs ...attribute.KeyValue) {
	set := attribute.NewSet(attrs...)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[set.Equivalent()] = gaugePoint{value: value, attrs: set}
}

// Delete stops reporting the series of attrs.
func (g *Int64SyncGauge) Delete(attrs ...attribute.KeyValue) {
	set := attribute.NewSet(attrs...)
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.values, set.Equivalent())
}
