package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSource struct {
	name  string
	match *Match
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Lookup(ctx context.Context, _ string) (*Match, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.match, f.err
}

func hit(name, source string) *fakeSource {
	return &fakeSource{name: name, match: &Match{Source: source, GenericName: name}}
}

func miss(name string) *fakeSource {
	return &fakeSource{name: name}
}

func failing(name string) *fakeSource {
	return &fakeSource{name: name, err: errors.New(name + " unavailable")}
}

func TestNewChain_OrdersByPriority(t *testing.T) {
	sources := []Source{miss(NameEMA), miss(NameRxNorm), miss(NameOpenFDA), miss("custom"), miss(NameDailyMed)}

	c := NewChain(sources, []string{"OpenFDA", "dailymed", "unknown", "rxnorm"}, logger.Nop())

	assert.Equal(t, []string{NameOpenFDA, NameDailyMed, NameRxNorm, NameEMA, "custom"}, c.Names())
}

func TestChain_SelectUsesPriorityNotArrival(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fast := hit(NameRxNorm, "RxNorm (NLM)")
	slow := hit(NameDailyMed, "DailyMed (NLM)")
	slow.delay = 30 * time.Millisecond

	c := NewChain([]Source{failing(NameOpenFDA), slow, fast, miss(NamePubChem)}, nil, logger.Nop())

	results := c.LookupAll(context.Background(), "Metformin")
	require.Len(t, results, 4)
	assert.Nil(t, results[0])
	assert.NotNil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Nil(t, results[3])

	winner := c.Select(results)
	require.NotNil(t, winner)
	assert.Equal(t, "DailyMed (NLM)", winner.Source)
}

func TestChain_ResolveAllFail(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewChain([]Source{failing(NameOpenFDA), failing(NameEMA), miss(NameRxNorm)}, nil, logger.Nop())

	assert.Nil(t, c.Resolve(context.Background(), "Anything"))
}

func TestChain_ResolveQueriesEverySourceInParallelMode(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	first := hit(NameOpenFDA, "OpenFDA (US FDA)")
	second := hit(NameDailyMed, "DailyMed (NLM)")

	c := NewChain([]Source{first, second}, nil, logger.Nop())

	m := c.Resolve(context.Background(), "Advil")
	require.NotNil(t, m)
	assert.Equal(t, "OpenFDA (US FDA)", m.Source)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestChain_SequentialShortCircuits(t *testing.T) {
	first := failing(NameOpenFDA)
	second := hit(NameDailyMed, "DailyMed (NLM)")
	third := hit(NameRxNorm, "RxNorm (NLM)")

	c := NewChain([]Source{first, second, third}, nil, logger.Nop(), WithSequential(true))

	m := c.Resolve(context.Background(), "Metformin")
	require.NotNil(t, m)
	assert.Equal(t, "DailyMed (NLM)", m.Source)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
	assert.Equal(t, int32(0), third.calls.Load())
}

func TestChain_RecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewVerificationMetrics(registry)
	require.NoError(t, err)

	c := NewChain([]Source{hit(NameOpenFDA, "OpenFDA (US FDA)"), failing(NameEMA), miss(NamePubChem)},
		nil, logger.Nop(), WithMetrics(m))
	c.LookupAll(context.Background(), "Advil")

	families, err := registry.Gather()
	require.NoError(t, err)

	outcomes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "medguard_registry_lookups_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			outcomes[labels["source"]+"/"+labels["outcome"]] = metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, outcomes["openfda/hit"])
	assert.Equal(t, 1.0, outcomes["ema/error"])
	assert.Equal(t, 1.0, outcomes["pubchem/miss"])
}
