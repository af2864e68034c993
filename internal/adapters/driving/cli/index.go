package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
)

var (
	buildCorpus     string
	buildOutput     string
	buildSample     int
	buildNoProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the vector index from the complaint corpus",
	Long: `Reads the complaint corpus, drops rows without a usable narrative,
cleans and segments each narrative, embeds every chunk and saves the index
together with a manifest of the embedding model and chunking parameters.

A running chat session started with --watch picks up the new index
as soon as the build finishes.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexInfoCmd = &cobra.Command{
	Use:   "info [path]",
	Short: "Show the manifest of a saved index",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexInfo,
}

func init() {
	indexBuildCmd.Flags().StringVar(&buildCorpus, "corpus", "", "corpus file (.csv, .tsv or .xlsx)")
	indexBuildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "index output path")
	indexBuildCmd.Flags().IntVar(&buildSample, "sample", 0, "keep at most N complaints, stratified by product")
	indexBuildCmd.Flags().BoolVar(&buildNoProgress, "no-progress", false, "disable the progress bar")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexInfoCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	a, err := app()
	if err != nil {
		return err
	}
	builder, err := a.IndexBuilder(cmd.Context())
	if err != nil {
		return err
	}
	if builder == nil {
		return fmt.Errorf("index builder not configured")
	}

	req := driving.BuildRequest{
		CorpusPath: buildCorpus,
		OutputPath: buildOutput,
		Sample:     buildSample,
	}
	if !buildNoProgress && isTerminal(os.Stderr) {
		bars := newStageBars(cmd.ErrOrStderr())
		defer bars.finish()
		req.Progress = bars.update
	}

	report, err := builder.Build(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	printBuildReport(cmd, report)
	return nil
}

func printBuildReport(cmd *cobra.Command, report *domain.BuildReport) {
	cmd.Printf("Index saved to %s\n", report.Path)
	cmd.Printf("  Rows read:  %d\n", report.Rows)
	cmd.Printf("  Indexed:    %d complaints, %d chunks\n", report.Accepted, report.Manifest.ChunkCount)
	cmd.Printf("  Rejected:   %d\n", report.RejectedTotal())

	reasons := make([]domain.RejectReason, 0, len(report.Rejected))
	for reason, n := range report.Rejected {
		if n > 0 {
			reasons = append(reasons, reason)
		}
	}
	slices.Sort(reasons)
	for _, reason := range reasons {
		cmd.Printf("    %-22s %d\n", reason, report.Rejected[reason])
	}

	cmd.Printf("  Embedding:  %s (%d dimensions)\n", report.Manifest.EmbeddingModel, report.Manifest.Dimensions)
	cmd.Printf("  Took:       %s\n", report.Duration.Round(time.Millisecond))
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	a, err := app()
	if err != nil {
		return err
	}
	manager, err := a.IndexManager(cmd.Context())
	if err != nil {
		return err
	}

	path := a.IndexPath()
	if len(args) == 1 {
		path = args[0]
	}

	manifest, err := manager.Inspect(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("reading index %s: %w", path, err)
	}

	cmd.Printf("Index: %s\n", path)
	cmd.Printf("  Build ID:   %s\n", manifest.ID)
	cmd.Printf("  Backend:    %s\n", manifest.Backend)
	cmd.Printf("  Built at:   %s\n", manifest.BuiltAt.Local().Format(time.RFC1123))
	cmd.Printf("  Embedding:  %s (%d dimensions)\n", manifest.EmbeddingModel, manifest.Dimensions)
	cmd.Printf("  Chunking:   size %d, overlap %d\n", manifest.ChunkSize, manifest.ChunkOverlap)
	cmd.Printf("  Contents:   %d complaints, %d chunks\n", manifest.DocumentCount, manifest.ChunkCount)
	return nil
}

// stageBars shows one progress bar per build stage.
type stageBars struct {
	w     io.Writer
	stage domain.BuildStage
	bar   *progressbar.ProgressBar
}

func newStageBars(w io.Writer) *stageBars {
	return &stageBars{w: w}
}

func (s *stageBars) update(p domain.BuildProgress) {
	if p.Stage != s.stage || s.bar == nil {
		s.finish()
		s.stage = p.Stage
		s.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(s.w),
			progressbar.OptionSetDescription(fmt.Sprintf("%-8s", p.Stage)),
			progressbar.OptionSetWidth(32),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = s.bar.Set(p.Done)
}

func (s *stageBars) finish() {
	if s.bar == nil {
		return
	}
	_ = s.bar.Finish()
	fmt.Fprintln(s.w)
	s.bar = nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
