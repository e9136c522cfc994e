// =================================================================================
//
//			fox-ambient - https://www.foxhollow.cc/projects/fox-audio/
//
//		 Fox Ambient is a small hearing assistant that routes the microphone
//	  through a light processing chain and straight back out to the speakers
//
//		 Copyright (c) 2024 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"fox-ambient/controller"
	"fox-ambient/model"
)

// Metrics holds the prometheus collectors fed by the lifecycle controller.
type Metrics struct {
	registry *prometheus.Registry

	sessionState    *prometheus.GaugeVec
	inputLevel      prometheus.Gauge
	micGain         prometheus.Gauge
	outputVolume    prometheus.Gauge
	reduction       prometheus.Gauge
	sessionsStarted prometheus.Counter
	startFailures   *prometheus.CounterVec
	rebuilds        *prometheus.CounterVec

	collectors []prometheus.Collector
}

func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	if err := registry.Register(m); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) initMetrics() {
	m.sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fox_ambient_session_state",
			Help: "1 for the lifecycle state the controller is in, 0 for the others",
		},
		[]string{"state"},
	)

	m.inputLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fox_ambient_input_level",
		Help: "Last level meter reading, 0 to 100",
	})

	m.micGain = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fox_ambient_mic_gain_percent",
		Help: "Microphone gain preference",
	})

	m.outputVolume = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fox_ambient_output_volume_percent",
		Help: "Output volume preference",
	})

	m.reduction = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fox_ambient_compressor_reduction_db",
		Help: "Gain reduction applied by the compressor",
	})

	m.sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fox_ambient_sessions_started_total",
		Help: "Sessions that reached the active state",
	})

	m.startFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fox_ambient_start_failures_total",
			Help: "Start attempts that failed, by error kind",
		},
		[]string{"kind"},
	)

	m.rebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fox_ambient_rebuilds_total",
			Help: "Session rebuilds caused by preference changes",
		},
		[]string{"reason"},
	)

	m.collectors = []prometheus.Collector{
		m.sessionState,
		m.inputLevel,
		m.micGain,
		m.outputVolume,
		m.reduction,
		m.sessionsStarted,
		m.startFailures,
		m.rebuilds,
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Observe updates the gauges from a controller snapshot.
func (m *Metrics) Observe(snapshot controller.Snapshot) {
	for _, status := range []model.Status{model.StatusIdle, model.StatusStarting, model.StatusActive, model.StatusStopping} {
		value := 0.0
		if status == snapshot.Status {
			value = 1
		}
		m.sessionState.WithLabelValues(strings.ToLower(status.String())).Set(value)
	}

	m.inputLevel.Set(float64(snapshot.Level))
	m.micGain.Set(float64(snapshot.Preferences.MicGain))
	m.outputVolume.Set(float64(snapshot.Preferences.OutputVolume))
	m.reduction.Set(snapshot.Reduction)
}

func (m *Metrics) SessionStarted(id string) {
	m.sessionsStarted.Inc()
}

func (m *Metrics) StartFailed(kind string) {
	m.startFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Rebuilt(reason string) {
	m.rebuilds.WithLabelValues(reason).Inc()
}
