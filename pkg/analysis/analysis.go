// Package analysis is the job entry point: it turns capture buffers into
// correlated calls with quality metrics and reconstructed audio.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/joseaugustine1/pcap-sip-vision/internal/audio"
	"github.com/joseaugustine1/pcap-sip-vision/internal/capture"
	"github.com/joseaugustine1/pcap-sip-vision/internal/classify"
	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/correlate"
	"github.com/joseaugustine1/pcap-sip-vision/internal/interval"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
	"github.com/joseaugustine1/pcap-sip-vision/internal/metrics"
	"github.com/joseaugustine1/pcap-sip-vision/internal/quality"
	"github.com/joseaugustine1/pcap-sip-vision/plugins/parser/sip"
)

// Capture is one named capture buffer of a job.
type Capture struct {
	Name string
	Data []byte
}

// FileReport is the per-capture outcome. Err is empty when the capture was
// read to the end (a truncated trailing record is not an error).
type FileReport struct {
	Name      string         `json:"name" yaml:"name"`
	Frames    int            `json:"frames" yaml:"frames"`
	Truncated bool           `json:"truncated" yaml:"truncated"`
	Err       string         `json:"error,omitempty" yaml:"error,omitempty"`
	Stats     classify.Stats `json:"stats" yaml:"stats"`
}

// Failed reports whether the capture could not be read.
func (f FileReport) Failed() bool { return f.Err != "" }

// CallReport holds everything measured for one call. Metrics is nil for
// calls without media.
type CallReport struct {
	Call       *correlate.Call         `json:"-" yaml:"-"`
	Encoding   core.Encoding           `json:"encoding" yaml:"encoding"`
	Metrics    *core.CallMetrics       `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Directions []core.DirectionMetrics `json:"directions,omitempty" yaml:"directions,omitempty"`
	Intervals  []core.IntervalMetric   `json:"intervals,omitempty" yaml:"intervals,omitempty"`
	Audio      core.AudioResult        `json:"audio" yaml:"audio"`
}

// Result is the outcome of one job.
type Result struct {
	JobID     string                  `json:"job_id" yaml:"job_id"`
	Calls     []CallReport            `json:"calls" yaml:"calls"`
	Signaling []core.SignalingMessage `json:"signaling" yaml:"signaling"`
	Files     []FileReport            `json:"files" yaml:"files"`
	Stats     classify.Stats          `json:"stats" yaml:"stats"`
}

// FailedFiles returns the number of captures that could not be read.
func (r *Result) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// Analyzer runs jobs. It holds no per-job state and may be shared between
// goroutines; each Analyze call is single-threaded.
type Analyzer struct {
	cfg    *config.Config
	logger log.Logger
}

// New creates an analyzer. A nil cfg means config.Default(), a nil logger
// the global one.
func New(cfg *config.Config, logger log.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Analyze processes captures in order into one shared call table. A capture
// that cannot be read is logged and recorded in the result; the remaining
// captures are still processed.
func (a *Analyzer) Analyze(jobID string, captures []Capture) *Result {
	started := time.Now()
	metrics.JobsInFlight.Inc()
	defer func() {
		metrics.JobsInFlight.Dec()
		metrics.JobDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	logger := a.logger.WithField("job", jobID)
	result := &Result{JobID: jobID}
	collector := correlate.NewCollector()

	for _, c := range captures {
		report := a.ingest(c, collector, logger.WithField("file", c.Name))
		result.Stats.Add(report.Stats)
		result.Files = append(result.Files, report)
	}
	recordFrames(result.Stats)

	calls := collector.Correlate(correlate.Options{Window: a.cfg.Analysis.CorrelationWindow})
	result.Calls = make([]CallReport, 0, len(calls))
	for _, call := range calls {
		result.Calls = append(result.Calls, a.measure(call, logger))
	}
	result.Signaling = collector.Signaling()

	logger.WithFields(map[string]interface{}{
		"files":   len(result.Files),
		"failed":  result.FailedFiles(),
		"frames":  result.Stats.Frames,
		"calls":   len(result.Calls),
		"elapsed": time.Since(started).String(),
	}).Info("analysis finished")
	return result
}

func (a *Analyzer) ingest(c Capture, collector *correlate.Collector, logger log.Logger) FileReport {
	report := FileReport{Name: c.Name}

	reader, err := capture.NewReader(c.Data)
	if err != nil {
		logger.WithError(err).Error("capture rejected")
		report.Err = err.Error()
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return report
	}

	classifier := classify.New(logger)
	for {
		frame, err := reader.Next()
		if err != nil {
			break
		}
		report.Frames++
		collector.Add(classifier.Classify(frame))
	}
	report.Stats = classifier.Stats()

	status := "ok"
	if reader.Truncated() {
		report.Truncated = true
		status = "truncated"
		logger.WithError(reader.Err()).Warn("capture ends with an incomplete record")
	}
	metrics.FilesTotal.WithLabelValues(status).Inc()

	logger.WithFields(map[string]interface{}{
		"link_type": reader.LinkType().String(),
		"frames":    report.Frames,
		"rtp":       report.Stats.Media,
		"sip":       report.Stats.Signaling,
	}).Debug("capture read")
	return report
}

func (a *Analyzer) measure(call *correlate.Call, logger log.Logger) CallReport {
	logger = logger.WithField("call", call.ID)
	enc := negotiatedEncoding(call)
	report := CallReport{Call: call, Encoding: enc}

	callType := "signaled"
	if call.MediaOnly {
		callType = "media_only"
	}
	metrics.CallsTotal.WithLabelValues(callType).Inc()

	qopts := quality.Options{ClockRate: a.clockRate(enc), Encoding: enc}
	m, err := quality.Compute(call.Packets(), qopts)
	switch {
	case err == nil:
		report.Metrics = &m
		metrics.CallMOS.Observe(m.MOS)
	case errors.Is(err, core.ErrEmptyStream):
		logger.Debug("call has no media")
	default:
		logger.WithError(err).Warn("failed to compute call metrics")
	}

	iopts := interval.Options{
		Window:     a.cfg.Analysis.Window,
		MinPackets: a.cfg.Analysis.MinWindowPackets,
		TrimEdges:  a.cfg.Analysis.TrimEdges,
		Quality:    qopts,
	}
	for _, s := range call.Streams {
		dm, err := a.direction(s, iopts)
		if err != nil {
			continue
		}
		report.Directions = append(report.Directions, dm)
	}

	// Call-wide windows run over the merged packets of every stream. With
	// independent sequence and timestamp bases per direction they read as
	// loss and jitter; the per-direction windows do not.
	report.Intervals = interval.Segment(call.Packets(), iopts)

	if a.cfg.Audio.Enabled {
		report.Audio = audio.Reconstruct(call.Streams, enc)
	} else {
		report.Audio = core.AudioResult{Status: core.AudioPending, Reason: "audio reconstruction disabled"}
	}
	metrics.AudioOutcomesTotal.WithLabelValues(string(report.Audio.Status)).Inc()
	if report.Audio.Status == core.AudioFailed {
		logger.WithField("reason", report.Audio.Reason).Warn("audio reconstruction failed")
	}
	return report
}

func (a *Analyzer) direction(s correlate.Stream, opts interval.Options) (core.DirectionMetrics, error) {
	if len(s.Packets) == 0 {
		return core.DirectionMetrics{}, fmt.Errorf("stream %08x: %w", s.SSRC, core.ErrEmptyStream)
	}
	m, err := quality.Compute(s.Packets, opts.Quality)
	if err != nil {
		return core.DirectionMetrics{}, err
	}
	first := s.Packets[0]
	return core.DirectionMetrics{
		SSRC:    s.SSRC,
		SrcIP:   first.SrcIP,
		DstIP:   first.DstIP,
		SrcPort: first.SrcPort,
		DstPort: first.DstPort,
		Metrics: m,

		Intervals: interval.Segment(s.Packets, opts),
	}, nil
}

func (a *Analyzer) clockRate(enc core.Encoding) uint32 {
	if enc.ClockRate != 0 {
		return enc.ClockRate
	}
	return a.cfg.Analysis.ClockRate
}

// negotiatedEncoding reads the INVITE's session description, falling back to
// the static payload type of the first media packet.
func negotiatedEncoding(call *correlate.Call) core.Encoding {
	if invite, ok := call.Invite(); ok && invite.SDP != "" {
		if enc, ok := sip.NegotiatedEncoding(invite.SDP); ok {
			return enc
		}
	}
	if pkts := call.Packets(); len(pkts) > 0 {
		if enc, ok := core.StaticEncoding(pkts[0].PayloadType); ok {
			return enc
		}
	}
	return core.Encoding{}
}

func recordFrames(s classify.Stats) {
	for outcome, n := range map[string]uint64{
		"rtp":          s.Media,
		"sip":          s.Signaling,
		"non_ipv4":     s.NonIPv4,
		"non_udp":      s.NonUDP,
		"malformed":    s.Malformed,
		"unrecognized": s.Unrecognized,
	} {
		if n > 0 {
			metrics.FramesTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}
}
