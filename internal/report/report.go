// Package report renders analysis results as JSON or YAML documents and
// writes reconstructed audio to WAV files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseaugustine1/pcap-sip-vision/internal/classify"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/analysis"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the serializable view of one job.
type Document struct {
	JobID       string                  `json:"job_id" yaml:"job_id"`
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	Files       []analysis.FileReport   `json:"files" yaml:"files"`
	Stats       classify.Stats          `json:"stats" yaml:"stats"`
	Calls       []CallDocument          `json:"calls" yaml:"calls"`
	Signaling   []core.SignalingMessage `json:"signaling,omitempty" yaml:"signaling,omitempty"`
}

// CallDocument is the serializable view of one call.
type CallDocument struct {
	ID         string                  `json:"id" yaml:"id"`
	MediaOnly  bool                    `json:"media_only" yaml:"media_only"`
	Messages   int                     `json:"messages" yaml:"messages"`
	SSRCs      []string                `json:"ssrcs,omitempty" yaml:"ssrcs,omitempty"`
	Encoding   core.Encoding           `json:"encoding" yaml:"encoding"`
	Metrics    *core.CallMetrics       `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Directions []core.DirectionMetrics `json:"directions,omitempty" yaml:"directions,omitempty"`
	Intervals  []core.IntervalMetric   `json:"intervals,omitempty" yaml:"intervals,omitempty"`
	Audio      AudioDocument           `json:"audio" yaml:"audio"`
}

// AudioDocument describes the audio outcome and the WAV files written for it.
type AudioDocument struct {
	Status   core.AudioStatus `json:"status" yaml:"status"`
	Reason   string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Outbound *TrackDocument   `json:"outbound,omitempty" yaml:"outbound,omitempty"`
	Inbound  *TrackDocument   `json:"inbound,omitempty" yaml:"inbound,omitempty"`
}

// TrackDocument describes one decoded direction.
type TrackDocument struct {
	SSRC       string  `json:"ssrc" yaml:"ssrc"`
	SampleRate uint32  `json:"sample_rate" yaml:"sample_rate"`
	Samples    int     `json:"samples" yaml:"samples"`
	DurationS  float64 `json:"duration_s" yaml:"duration_s"`
	File       string  `json:"file,omitempty" yaml:"file,omitempty"`
}

// Build converts res into a Document. includeSignaling controls whether the
// raw signaling messages are embedded.
func Build(res *analysis.Result, includeSignaling bool) Document {
	doc := Document{
		JobID:       res.JobID,
		GeneratedAt: time.Now().UTC(),
		Files:       res.Files,
		Stats:       res.Stats,
		Calls:       make([]CallDocument, 0, len(res.Calls)),
	}
	if includeSignaling {
		doc.Signaling = res.Signaling
	}

	for _, c := range res.Calls {
		cd := CallDocument{
			ID:         c.Call.ID,
			MediaOnly:  c.Call.MediaOnly,
			Messages:   len(c.Call.Signaling),
			Encoding:   c.Encoding,
			Metrics:    c.Metrics,
			Directions: c.Directions,
			Intervals:  c.Intervals,
			Audio: AudioDocument{
				Status:   c.Audio.Status,
				Reason:   c.Audio.Reason,
				Outbound: track(c.Audio.Outbound),
				Inbound:  track(c.Audio.Inbound),
			},
		}
		for _, s := range c.Call.Streams {
			cd.SSRCs = append(cd.SSRCs, ssrcHex(s.SSRC))
		}
		doc.Calls = append(doc.Calls, cd)
	}
	return doc
}

func track(a *core.DecodedAudio) *TrackDocument {
	if a == nil {
		return nil
	}
	t := &TrackDocument{
		SSRC:       ssrcHex(a.SSRC),
		SampleRate: a.SampleRate,
		Samples:    len(a.Samples),
	}
	if a.SampleRate > 0 {
		t.DurationS = float64(len(a.Samples)) / float64(a.SampleRate)
	}
	return t
}

func ssrcHex(ssrc uint32) string {
	return fmt.Sprintf("0x%08x", ssrc)
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc Document, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("json marshal failed: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("yaml marshal failed: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid format %q, must be json or yaml", format)
	}
}

// Written lists the files produced by Write.
type Written struct {
	Report string
	Audio  []string
}

// Write stores the report of res and its WAV tracks under dir:
//
//	<dir>/<job>.<format>
//	<dir>/<job>/<n>-<call>-outbound.wav
//	<dir>/<job>/<n>-<call>-inbound.wav
//
// n is the 1-based call index; SafeName alone can map two Call-IDs to the
// same name.
func Write(dir string, res *analysis.Result, format string) (Written, error) {
	var out Written
	if format == "" {
		format = FormatJSON
	}
	doc := Build(res, true)
	jobName := SafeName(res.JobID)

	for i, c := range res.Calls {
		tracks := []struct {
			name  string
			audio *core.DecodedAudio
			doc   *TrackDocument
		}{
			{"outbound", c.Audio.Outbound, doc.Calls[i].Audio.Outbound},
			{"inbound", c.Audio.Inbound, doc.Calls[i].Audio.Inbound},
		}
		for _, t := range tracks {
			if t.audio == nil || len(t.audio.WAV) == 0 {
				continue
			}
			rel := filepath.Join(jobName, fmt.Sprintf("%d-%s-%s.wav", i+1, SafeName(c.Call.ID), t.name))
			path := filepath.Join(dir, rel)
			if err := writeFile(path, t.audio.WAV); err != nil {
				return out, err
			}
			t.doc.File = rel
			out.Audio = append(out.Audio, path)
		}
	}

	out.Report = filepath.Join(dir, jobName+"."+strings.ToLower(format))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(out.Report)
	if err != nil {
		return out, fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := Encode(f, doc, format); err != nil {
		return out, err
	}
	return out, f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create audio dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SafeName maps s to a file name: anything outside [A-Za-z0-9._-] becomes '_'.
func SafeName(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Summary writes a short human-readable overview of doc.
func Summary(w io.Writer, doc Document) {
	fmt.Fprintf(w, "job %s: %d file(s), %d frame(s), %d rtp, %d sip, %d call(s)\n",
		doc.JobID, len(doc.Files), doc.Stats.Frames, doc.Stats.Media, doc.Stats.Signaling, len(doc.Calls))
	for _, f := range doc.Files {
		if f.Err != "" {
			fmt.Fprintf(w, "  file %s: FAILED %s\n", f.Name, f.Err)
		}
	}
	for _, c := range doc.Calls {
		if c.Metrics == nil {
			fmt.Fprintf(w, "  %s: no media, audio=%s\n", c.ID, c.Audio.Status)
			continue
		}
		fmt.Fprintf(w, "  %s: %s loss=%d/%d (%.2f%%) jitter=%.2fms mos=%.2f audio=%s\n",
			c.ID, c.Encoding, c.Metrics.PacketsLost, c.Metrics.PacketsExpected, c.Metrics.LossPercent,
			c.Metrics.AvgJitterMs, c.Metrics.MOS, c.Audio.Status)
	}
}
