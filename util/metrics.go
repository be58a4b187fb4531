package util

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const METRICS_NAMESPACE = "beamtag"

// Metrics holds the decoder counters on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	SentencesTagged   prometheus.Counter
	SentencesFailed   prometheus.Counter
	DecodeSeconds     prometheus.Histogram
	DecisionStarved   prometheus.Counter
	FloorRestored     prometheus.Counter
	LexiconRestored   prometheus.Counter
	SequencesReturned prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SentencesTagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "sentences_tagged_total",
			Help:      "Sentences decoded successfully.",
		}),
		SentencesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "sentences_failed_total",
			Help:      "Sentences whose decode returned an error.",
		}),
		DecodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "decode_duration_seconds",
			Help:      "Wall time of a single sentence decode.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		DecisionStarved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "decision_starvation_total",
			Help:      "Negative rules that would have removed every decision.",
		}),
		FloorRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "floor_restored_total",
			Help:      "Probability floor applications that would have removed every decision.",
		}),
		LexiconRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "lexicon_restored_total",
			Help:      "Closed-class constraints that would have removed every decision.",
		}),
		SequencesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: METRICS_NAMESPACE,
			Name:      "sequences_returned",
			Help:      "Size of the N-best list per sentence.",
			Buckets:   prometheus.LinearBuckets(1, 4, 8),
		}),
	}
	m.Registry.MustRegister(
		m.SentencesTagged,
		m.SentencesFailed,
		m.DecodeSeconds,
		m.DecisionStarved,
		m.FloorRestored,
		m.LexiconRestored,
		m.SequencesReturned,
	)
	return m
}

// The recording methods are no-ops on a nil *Metrics

func (m *Metrics) Tagged(d time.Duration, returned int) {
	if m == nil {
		return
	}
	m.SentencesTagged.Inc()
	m.DecodeSeconds.Observe(d.Seconds())
	m.SequencesReturned.Observe(float64(returned))
}

func (m *Metrics) Failed() {
	if m == nil {
		return
	}
	m.SentencesFailed.Inc()
}

func (m *Metrics) Starved() {
	if m == nil {
		return
	}
	m.DecisionStarved.Inc()
}

func (m *Metrics) FloorRestore() {
	if m == nil {
		return
	}
	m.FloorRestored.Inc()
}

func (m *Metrics) LexiconRestore() {
	if m == nil {
		return
	}
	m.LexiconRestored.Inc()
}

// Write dumps the registry in the text exposition format
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
