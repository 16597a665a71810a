package metrics

import (
	"github.com/foxseedlab/mojistream/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var streamStates = []string{"idle", "connecting", "streaming", "stopping", "stopped", "failed"}

// Prometheus records pipeline counters on its own registry so tests and
// the status server can share one instance without touching the default.
type Prometheus struct {
	registry *prometheus.Registry

	blocksCaptured   prometheus.Counter
	chunksSent       prometheus.Counter
	bytesSent        prometheus.Counter
	chunksDropped    prometheus.Counter
	sendFailures     prometheus.Counter
	messagesReceived prometheus.Counter
	decodeFailures   prometheus.Counter
	chunkSize        prometheus.Histogram
	streamState      *prometheus.GaugeVec
	stateChanges     *prometheus.CounterVec
}

var _ metrics.Recorder = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	p := &Prometheus{
		registry: reg,
		blocksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_audio_blocks_captured_total",
			Help: "Audio blocks delivered by the capture source",
		}),
		chunksSent: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_chunks_sent_total",
			Help: "PCM chunks written to the stream channel",
		}),
		bytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_bytes_sent_total",
			Help: "PCM bytes written to the stream channel",
		}),
		chunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_chunks_dropped_total",
			Help: "Chunks discarded because the outbound queue was full",
		}),
		sendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_send_failures_total",
			Help: "Chunk writes that returned an error",
		}),
		messagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_messages_received_total",
			Help: "Inbound transcript events",
		}),
		decodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "mojistream_decode_failures_total",
			Help: "Inbound events that could not be decoded",
		}),
		chunkSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mojistream_chunk_size_bytes",
			Help:    "Size of PCM chunks sent",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		}),
		streamState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mojistream_stream_state",
			Help: "1 for the current stream state, 0 otherwise",
		}, []string{"state"}),
		stateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mojistream_stream_state_changes_total",
			Help: "Stream state transitions by target state",
		}, []string{"state"}),
	}
	p.setState("idle")
	return p
}

// Registry is what /metrics serves.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) BlockCaptured() { p.blocksCaptured.Inc() }

func (p *Prometheus) ChunkSent(bytes int) {
	p.chunksSent.Inc()
	p.bytesSent.Add(float64(bytes))
	p.chunkSize.Observe(float64(bytes))
}

func (p *Prometheus) ChunkDropped()    { p.chunksDropped.Inc() }
func (p *Prometheus) SendFailed()      { p.sendFailures.Inc() }
func (p *Prometheus) MessageReceived() { p.messagesReceived.Inc() }
func (p *Prometheus) DecodeFailed()    { p.decodeFailures.Inc() }

func (p *Prometheus) StreamStateChanged(state string) {
	p.stateChanges.WithLabelValues(state).Inc()
	p.setState(state)
}

func (p *Prometheus) setState(current string) {
	for _, s := range streamStates {
		v := 0.0
		if s == current {
			v = 1
		}
		p.streamState.WithLabelValues(s).Set(v)
	}
}
