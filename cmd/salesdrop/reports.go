package main

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/queue"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/s3storage"
)

func newGetCmd(a *app) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reports, release, err := a.openReports(ctx)
			if err != nil {
				return err
			}
			defer release()

			r, found, err := reports.FindByID(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("report %s not found", args[0])
			}
			if summary {
				return printJSON(cmd.OutOrStdout(), r.Summary())
			}
			return printJSON(cmd.OutOrStdout(), r.Serialize())
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the summary view only")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter   repository.ReportFilter
		status   string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored report summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch model.ReportStatus(status) {
			case "", model.StatusSuccess, model.StatusFailed:
				filter.Status = model.ReportStatus(status)
			default:
				return fmt.Errorf("invalid status %q", status)
			}
			var err error
			if filter.From, err = parseDay(from); err != nil {
				return err
			}
			if filter.To, err = parseDay(to); err != nil {
				return err
			}

			reports, release, err := a.openReports(ctx)
			if err != nil {
				return err
			}
			defer release()
			found, err := reports.List(ctx, filter)
			if err != nil {
				return err
			}
			out := make([]model.Summary, 0, len(found))
			for _, r := range found {
				out = append(out, r.Summary())
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success|failed)")
	cmd.Flags().StringVar(&filter.Bucket, "bucket", "", "Filter by source bucket")
	cmd.Flags().StringVar(&filter.Key, "key", "", "Filter by source key")
	cmd.Flags().StringVar(&from, "from", "", "Only reports whose period starts on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Only reports whose period ends on or before YYYY-MM-DD")
	cmd.Flags().IntVar(&filter.Limit, "limit", repository.DefaultListLimit, "Maximum results")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Results to skip")
	return cmd
}

func newEnqueueCmd(a *app) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "enqueue <key>...",
		Short: "Queue objects already in storage for the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := s3storage.New(a.cfg, a.logger)
			if err != nil {
				return err
			}
			if bucket == "" {
				bucket = store.RawBucket()
			}
			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     a.cfg.RedisAddr,
				Password: a.cfg.RedisPassword,
				DB:       a.cfg.RedisDB,
			})
			defer client.Close()
			jobs := queue.NewClient(client)

			for _, key := range args {
				file, err := store.Describe(ctx, bucket, key)
				if err != nil {
					return fmt.Errorf("describe %s/%s: %w", bucket, key, err)
				}
				if err := file.Annotate("uploader", "cli"); err != nil {
					return err
				}
				if err := jobs.EnqueueExtract(ctx, file); err != nil {
					return fmt.Errorf("enqueue %s/%s: %w", bucket, key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s %s\n", file.ID(), file.Location())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding the keys (defaults to the raw bucket)")
	return cmd
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", v, err)
	}
	return t, nil
}
