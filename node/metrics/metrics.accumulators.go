package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
)

// StatsSource is implemented by chainmmr.ChainAccumulators.
type StatsSource interface {
	Stats() (chainmmr.Stats, error)
}

type accumulatorMetrics struct {
	sync.Mutex
	metricsByName map[string]prometheus.Gauge
	source        StatsSource
	registerer    prometheus.Registerer
	name          string
}

// AccumulatorMetrics exports the size of every accumulator of the chain.
func AccumulatorMetrics(source StatsSource, name string, registerer prometheus.Registerer) IMetric {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &accumulatorMetrics{
		source:        source,
		registerer:    registerer,
		name:          name,
		metricsByName: make(map[string]prometheus.Gauge),
	}
}

func (s *accumulatorMetrics) Read() {
	stats, err := s.source.Stats()
	if err != nil {
		log.Error().Err(err).Str("chain", s.name).Msg("can't read accumulator stats")
		return
	}

	s.updateGauge(prometheus.BuildFQName("chain", s.name, "height"), "Number of applied blocks", float64(stats.Height))
	for _, tree := range stats.Trees {
		subsystem := s.name + "_" + tree.Tree.String()
		s.updateGauge(prometheus.BuildFQName("mmr", subsystem, "leaves"), "Leaves of the accumulator", float64(tree.Leaves))
		s.updateGauge(prometheus.BuildFQName("mmr", subsystem, "deleted"), "Deleted leaves", float64(tree.Deleted))
		s.updateGauge(prometheus.BuildFQName("mmr", subsystem, "nodes"), "Stored nodes", float64(tree.Nodes))
		s.updateGauge(prometheus.BuildFQName("mmr", subsystem, "checkpoints"), "Committed checkpoints", float64(tree.Checkpoints))
		s.updateGauge(prometheus.BuildFQName("mmr", subsystem, "merged"), "Checkpoints merged into the base", float64(tree.Merged))
	}
}

func (s *accumulatorMetrics) updateGauge(name, help string, value float64) {
	s.Lock()
	defer s.Unlock()
	m, ok := s.metricsByName[name]
	if !ok {
		m = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		})
		if err := s.registerer.Register(m); err != nil {
			log.Error().Err(err).Str("metric", name).Msg("can't register metric")
		}
		s.metricsByName[name] = m
	}
	m.Set(value)
}
