package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/collections/internal/infrastructure/cache"
	"github.com/erp/collections/internal/infrastructure/scheduler"
	"github.com/spf13/cobra"
)

func newJobsCmd(flags *globalFlags) *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Run the ledger sweeps outside the server schedule",
	}

	run := &cobra.Command{
		Use:   "run <type>|all",
		Short: "Run one sweep, or all of them in order",
		Long: `Run a sweep once and print its result as JSON.

Types: ` + strings.Join(jobTypeNames(), ", ") + `

The sweep takes the same lock as the server scheduler, so a run is skipped
while the server is executing the same job.`,
		Example: `  arctl jobs run REFRESH_INVOICE_STATUSES
  arctl jobs run all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := parseJobArg(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			comps, err := cache.NewFactory(e.cfg.Redis, cache.WithLogger(e.log)).Create(ctx)
			if err != nil {
				return fmt.Errorf("init job lock: %w", err)
			}
			defer comps.Close()

			executor := scheduler.NewReceivableJobExecutor(
				e.svc.Refresher, e.svc.Tracker, e.svc.Recalc,
				comps.Lock, e.cfg.Redis.LockTTL, e.log,
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, jt := range types {
				job := scheduler.NewJob(jt, "cli", 0)
				job.Start()
				result, err := executor.Execute(ctx, job)
				switch {
				case errors.Is(err, scheduler.ErrJobAlreadyRunning):
					job.Skip()
				case err != nil:
					job.Fail(err.Error())
					_ = enc.Encode(job)
					return fmt.Errorf("%s: %w", jt, err)
				default:
					job.Complete(result)
				}
				if err := enc.Encode(job); err != nil {
					return err
				}
			}
			return nil
		},
	}

	jobs.AddCommand(run)
	return jobs
}

func parseJobArg(arg string) ([]scheduler.JobType, error) {
	if strings.EqualFold(arg, "all") {
		return scheduler.AllJobTypes(), nil
	}
	jt, err := scheduler.ParseJobType(strings.ToUpper(arg))
	if err != nil {
		return nil, err
	}
	return []scheduler.JobType{jt}, nil
}

func jobTypeNames() []string {
	var names []string
	for _, jt := range scheduler.AllJobTypes() {
		names = append(names, string(jt))
	}
	return names
}
