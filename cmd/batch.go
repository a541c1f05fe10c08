package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adalundhe/glossforge/core/batch"
	"github.com/adalundhe/glossforge/core/errors"
	"github.com/adalundhe/glossforge/core/pipeline"
	"github.com/adalundhe/glossforge/core/service"
)

var (
	batchPairsFile   string
	batchAllPending  bool
	batchTermID      string
	batchModel       string
	batchConcurrency int
	batchRPM         int
	batchCeiling     float64
	batchFallback    string
	batchForce       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the pipeline over many term/column pairs",
	Long: `Runs the generate-evaluate-improve pipeline over a set of units with
bounded concurrency, an adapter-call rate cap, and an optional cost ceiling.

Units come from --pairs-file (one "term-id<TAB>column-id" per line, # comments
allowed), from --term (every unfilled column of one term), or from
--all-pending (every unfilled cell across all registered terms).

Interrupting with Ctrl-C cancels the job cooperatively: in-flight units
finish, no new ones start, and the checkpoint records the partial run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		units, err := collectUnits(cmd, svc)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Println("nothing to do")
			return nil
		}

		cfg := batch.Config{
			Concurrency:       batchConcurrency,
			RequestsPerMinute: batchRPM,
			CostCeilingUSD:    batchCeiling,
			FallbackModel:     batchFallback,
			ForceRegenerate:   batchForce,
		}

		job := svc.RunBatch(ctx, units, cfg)
		fmt.Printf("job %s: %d units\n", job.ID(), len(units))

		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(interrupts)

		go func() {
			<-interrupts
			fmt.Fprintln(os.Stderr, "\ninterrupt: cancelling, in-flight units will finish")
			job.Cancel()
		}()

		for progress := range job.Events() {
			fmt.Printf("\r[%s] ok=%d failed=%d skipped=%d remaining=%d spent=$%.4f",
				progress.State, progress.Succeeded, progress.Failed,
				progress.Skipped, progress.Remaining, progress.CostUSD)
		}
		fmt.Println()

		final := job.Wait()
		for _, failure := range job.Failures() {
			fmt.Printf("failed %s/%s on %s: %v\n",
				failure.Unit.TermID, failure.Unit.ColumnID, failure.Unit.ModelID, failure.Err)
		}
		fmt.Printf("done: state=%s succeeded=%d failed=%d skipped=%d cost=$%.4f\n",
			final.State, final.Succeeded, final.Failed, final.Skipped, final.CostUSD)

		if final.State == batch.JobFailed {
			return errors.New(errors.KindProviderError, "batch finished with failures")
		}
		return nil
	},
}

func collectUnits(cmd *cobra.Command, svc *service.Service) ([]pipeline.Unit, error) {
	ctx := cmd.Context()

	var (
		units []pipeline.Unit
		err   error
	)
	switch {
	case batchPairsFile != "":
		return readPairsFile(batchPairsFile, batchModel)
	case batchTermID != "":
		units, err = svc.PendingUnits(ctx, batchTermID)
	case batchAllPending:
		units, err = svc.AllPendingUnits(ctx)
	default:
		return nil, errors.New(errors.KindConfiguration,
			"one of --pairs-file, --term, or --all-pending is required")
	}
	if err != nil {
		return nil, err
	}

	if batchModel != "" {
		for i := range units {
			units[i].ModelID = batchModel
		}
	}
	return units, nil
}

// readPairsFile parses a tab- or comma-separated "term, column" list.
func readPairsFile(path, model string) ([]pipeline.Unit, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfiguration, "open pairs file", err)
	}
	defer file.Close()

	var units []pipeline.Unit
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == '\t' || r == ','
		})
		if len(fields) < 2 {
			return nil, errors.New(errors.KindConfiguration,
				fmt.Sprintf("%s:%d: expected term-id and column-id", path, line))
		}

		unit := pipeline.Unit{
			TermID:   strings.TrimSpace(fields[0]),
			ColumnID: strings.TrimSpace(fields[1]),
			ModelID:  model,
		}
		if len(fields) > 2 {
			unit.ModelID = strings.TrimSpace(fields[2])
		}
		units = append(units, unit)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.KindConfiguration, "read pairs file", err)
	}
	return units, nil
}

var batchJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List checkpointed batch jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		checkpoints, err := svc.Checkpoints().List(ctx)
		if err != nil {
			return err
		}
		if len(checkpoints) == 0 {
			fmt.Println("no batch jobs recorded")
			return nil
		}
		for _, checkpoint := range checkpoints {
			fmt.Printf("%s  state=%s ok=%d failed=%d skipped=%d cost=$%.4f\n",
				checkpoint.JobID, checkpoint.State, checkpoint.Succeeded,
				checkpoint.Failed, checkpoint.Skipped, checkpoint.CostUSD)
		}
		return nil
	},
}

func init() {
	batchCmd.AddCommand(batchJobsCmd)
	batchCmd.Flags().StringVar(&batchPairsFile, "pairs-file", "", "file of term/column pairs, one per line")
	batchCmd.Flags().StringVar(&batchTermID, "term", "", "run every unfilled column of this term")
	batchCmd.Flags().BoolVar(&batchAllPending, "all-pending", false, "run every unfilled cell across all terms")
	batchCmd.Flags().StringVarP(&batchModel, "model", "m", "", "model id for all units")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "worker pool size")
	batchCmd.Flags().IntVar(&batchRPM, "rpm", 0, "adapter calls per minute across the batch")
	batchCmd.Flags().Float64Var(&batchCeiling, "cost-ceiling", 0, "stop admitting units past this USD spend")
	batchCmd.Flags().StringVar(&batchFallback, "fallback-model", "", "model tried once after retries are exhausted")
	batchCmd.Flags().BoolVarP(&batchForce, "force", "f", false, "bypass the cache for every unit")
	rootCmd.AddCommand(batchCmd)
}
