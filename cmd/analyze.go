// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
	"github.com/joseaugustine1/pcap-sip-vision/internal/report"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.pcap>...",
	Short: "Analyze capture files as one job",
	Long: `Analyze one or more pcap files as a single job. Signaling and media are
correlated across all files of the job.

The report (json or yaml) is written to <out>/<job-id>.<format> and
reconstructed audio to <out>/<job-id>/<call-id>-{outbound,inbound}.wav.

Examples:
  sip-vision analyze call.pcap
  sip-vision analyze sip.pcap rtp.pcap --job-id incident-42 --out ./reports
  sip-vision analyze call.pcap --format yaml`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			exitWithError("failed to load config", err)
		}
		opts := analyzeOptions{
			JobID:  analyzeJobID,
			OutDir: analyzeOutDir,
			Format: analyzeFormat,
			Files:  args,
		}
		if err := runAnalyze(cfg, opts, os.Stdout); err != nil {
			exitWithError("analysis failed", err)
		}
	},
}

var (
	analyzeJobID  string
	analyzeOutDir string
	analyzeFormat string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeJobID, "job-id", "",
		"job id (random UUID when empty)")
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out", "o", "",
		"output directory (default: output.dir from config)")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "",
		"report format json|yaml (default: output.format from config)")
}

type analyzeOptions struct {
	JobID  string
	OutDir string
	Format string
	Files  []string
}

// withDefaults fills empty options from cfg.
func (o analyzeOptions) withDefaults(cfg *config.Config) analyzeOptions {
	if o.JobID == "" {
		o.JobID = uuid.NewString()
	}
	if o.OutDir == "" {
		o.OutDir = cfg.Output.Dir
	}
	if o.Format == "" {
		o.Format = cfg.Output.Format
	}
	return o
}

func runAnalyze(cfg *config.Config, opts analyzeOptions, w io.Writer) error {
	opts = opts.withDefaults(cfg)

	captures, err := readCaptures(opts.Files)
	if err != nil {
		return err
	}

	res := analysis.New(cfg, log.GetLogger()).Analyze(opts.JobID, captures)
	return writeResult(res, opts.OutDir, opts.Format, w)
}

func readCaptures(files []string) ([]analysis.Capture, error) {
	captures := make([]analysis.Capture, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		captures = append(captures, analysis.Capture{Name: filepath.Base(f), Data: data})
	}
	return captures, nil
}

func writeResult(res *analysis.Result, outDir, format string, w io.Writer) error {
	written, err := report.Write(outDir, res, format)
	if err != nil {
		return fmt.Errorf("job %s: failed to write report: %w", res.JobID, err)
	}

	report.Summary(w, report.Build(res, false))
	fmt.Fprintf(w, "report: %s\n", written.Report)
	for _, a := range written.Audio {
		fmt.Fprintf(w, "audio:  %s\n", a)
	}

	if len(res.Files) > 0 && res.FailedFiles() == len(res.Files) {
		return fmt.Errorf("job %s: none of %d capture(s) could be read", res.JobID, len(res.Files))
	}
	return nil
}
