package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/crcstream/pkg/checksum"
)

// 失败原因标签
const (
	ReasonUpstream = "upstream"
	ReasonAborted  = "aborted"
	ReasonOther    = "other"
)

var _ checksum.Observer = (*Recorder)(nil)

// Recorder 将 Transform 的生命周期事件记录为 Prometheus 指标
// 一个 Recorder 可以同时挂在多个 Transform 上
type Recorder struct {
	bytes     prometheus.Counter
	completed prometheus.Counter
	failed    *prometheus.CounterVec
	size      prometheus.Histogram
}

// NewRecorder 创建并注册 Recorder
// reg 为 nil 时使用 prometheus.DefaultRegisterer
func NewRecorder(reg prometheus.Registerer, namespace, subsystem string) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_total",
			Help:      "Bytes folded into checksums.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "streams_completed_total",
			Help:      "Checksum streams that finished with a digest.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "streams_failed_total",
			Help:      "Checksum streams that ended in error.",
		}, []string{"reason"}),
		size: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stream_size_bytes",
			Help:      "Size of completed checksum streams.",
			// 1KiB .. 1GiB
			Buckets: prometheus.ExponentialBuckets(1024, 4, 11),
		}),
	}

	for _, c := range []prometheus.Collector{r.bytes, r.completed, r.failed, r.size} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register checksum metrics")
		}
	}

	return r, nil
}

// OnChunk 实现 checksum.Observer
func (r *Recorder) OnChunk(n int) {
	r.bytes.Add(float64(n))
}

// OnComplete 实现 checksum.Observer
func (r *Recorder) OnComplete(d checksum.Digest) {
	r.completed.Inc()
	r.size.Observe(float64(d.Size))
}

// OnError 实现 checksum.Observer
func (r *Recorder) OnError(err error) {
	r.failed.WithLabelValues(reason(err)).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, checksum.ErrUpstream):
		return ReasonUpstream
	case errors.Is(err, checksum.ErrAborted):
		return ReasonAborted
	default:
		return ReasonOther
	}
}
