// Package cmd implements CLI commands.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
	"github.com/joseaugustine1/pcap-sip-vision/internal/metrics"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/analysis"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run several analysis jobs concurrently",
	Long: `Run the jobs listed in a YAML manifest. Up to analysis.workers jobs run
at the same time; each job is analyzed independently.

Relative file paths are resolved against the manifest's directory.

Manifest format:
  jobs:
    - id: incident-42        # optional, random UUID when empty
      files: [sip.pcap, rtp.pcap]
    - files: [other.pcap]

When metrics.enabled is set, Prometheus metrics are served on
metrics.listen for the duration of the batch.

Examples:
  sip-vision batch -f jobs.yaml
  sip-vision batch -f jobs.yaml -c config.yaml --out ./reports`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			exitWithError("failed to load config", err)
		}
		manifest, err := loadManifest(batchManifest)
		if err != nil {
			exitWithError("failed to load manifest", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runBatch(ctx, cfg, manifest, batchOutDir, os.Stdout); err != nil {
			exitWithError("batch failed", err)
		}
	},
}

var (
	batchManifest string
	batchOutDir   string
)

func init() {
	batchCmd.Flags().StringVarP(&batchManifest, "file", "f", "",
		"batch manifest file (required)")
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "",
		"output directory (default: output.dir from config)")
	batchCmd.MarkFlagRequired("file")
}

// Manifest lists the jobs of a batch.
type Manifest struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// JobSpec is one job of a batch manifest.
type JobSpec struct {
	ID    string   `yaml:"id"`
	Files []string `yaml:"files"`
}

func loadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	return parseManifest(data, filepath.Dir(path))
}

func parseManifest(data []byte, baseDir string) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return Manifest{}, fmt.Errorf("manifest has no jobs")
	}

	seen := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if seen[job.ID] {
			return Manifest{}, fmt.Errorf("duplicate job id %q", job.ID)
		}
		seen[job.ID] = true
		if len(job.Files) == 0 {
			return Manifest{}, fmt.Errorf("job %q has no files", job.ID)
		}
		for j, f := range job.Files {
			if !filepath.IsAbs(f) {
				job.Files[j] = filepath.Join(baseDir, f)
			}
		}
	}
	return m, nil
}

func runBatch(ctx context.Context, cfg *config.Config, m Manifest, outDir string, w io.Writer) error {
	logger := log.GetLogger()
	if outDir == "" {
		outDir = cfg.Output.Dir
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer srv.Stop(context.Background())
	}

	analyzer := analysis.New(cfg, logger)
	outputs := make([]bytes.Buffer, len(m.Jobs))

	// Jobs are independent: a failed job never cancels the others. Only the
	// caller's context stops jobs that have not started yet.
	var g errgroup.Group
	if cfg.Analysis.Workers > 0 {
		g.SetLimit(cfg.Analysis.Workers)
	}
	errs := make([]error, len(m.Jobs))
	for i, job := range m.Jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("job %s: %w", job.ID, err)
				return nil
			}
			errs[i] = runJob(analyzer, job, outDir, cfg.Output.Format, &outputs[i])
			if errs[i] != nil {
				logger.WithField("job", job.ID).WithError(errs[i]).Error("job failed")
			}
			return nil
		})
	}
	g.Wait()

	for i := range outputs {
		if _, werr := outputs[i].WriteTo(w); werr != nil {
			return werr
		}
	}
	return errors.Join(errs...)
}

func runJob(analyzer *analysis.Analyzer, job JobSpec, outDir, format string, w io.Writer) error {
	captures, err := readCaptures(job.Files)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	res := analyzer.Analyze(job.ID, captures)
	return writeResult(res, outDir, format, w)
}
