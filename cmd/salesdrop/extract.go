package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/pipeline"
	"github.com/dharsanguruparan/SalesDrop/internal/s3storage"
)

const localBucket = "local"

type extractResult struct {
	File     string             `json:"file"`
	ReportID string             `json:"reportId,omitempty"`
	Status   model.ReportStatus `json:"status,omitempty"`
	Stage    string             `json:"stage,omitempty"`
	Error    string             `json:"error,omitempty"`
	Summary  *model.Summary     `json:"summary,omitempty"`
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		local       bool
		bucket      string
		archive     bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "extract <key|path>...",
		Short: "Run extraction for files and print the resulting reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reports, release, err := a.openReports(ctx)
			if err != nil {
				return err
			}
			defer release()

			opts := []pipeline.Option{
				pipeline.WithLargeThreshold(a.cfg.LargeReportRows),
				pipeline.WithLogger(a.logger),
			}
			var (
				source filereader.Source
				files  []*model.FileDescriptor
			)
			if local {
				mem := filereader.NewMemoryReader()
				if files, err = loadLocal(mem, args); err != nil {
					return err
				}
				source = mem
			} else {
				store, err := s3storage.New(a.cfg, a.logger)
				if err != nil {
					return err
				}
				if bucket == "" {
					bucket = store.RawBucket()
				}
				for _, key := range args {
					f, err := store.Describe(ctx, bucket, key)
					if err != nil {
						return fmt.Errorf("describe %s/%s: %w", bucket, key, err)
					}
					files = append(files, f)
				}
				if source, err = s3storage.NewSource(ctx, a.cfg, a.logger); err != nil {
					return err
				}
				if archive {
					opts = append(opts, pipeline.WithArchiver(store))
				}
			}

			if concurrency <= 0 {
				concurrency = a.cfg.BatchConcurrency
			}
			outcomes, runErr := pipeline.New(source, reports, opts...).RunBatch(ctx, files, concurrency)
			results := make([]extractResult, 0, len(outcomes))
			for i, out := range outcomes {
				results = append(results, describeOutcome(files[i], out))
			}
			if err := printJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Treat arguments as local file paths")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding the keys (defaults to the raw bucket)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive successful reports to the processed bucket")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Files processed at once (defaults to config)")
	return cmd
}

// loadLocal copies files from disk into mem and describes them.
func loadLocal(mem *filereader.MemoryReader, paths []string) ([]*model.FileDescriptor, error) {
	mem.CreateBucket(localBucket)
	files := make([]*model.FileDescriptor, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		key := filepath.ToSlash(filepath.Clean(p))
		mem.Put(localBucket, key, data)
		modified := info.ModTime().UTC()
		f, err := model.NewFileDescriptor(model.FileParams{
			Name:        filepath.Base(p),
			Size:        int64(len(data)),
			ContentType: http.DetectContentType(data),
			Bucket:      localBucket,
			Key:         key,
			CreatedAt:   modified,
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func describeOutcome(file *model.FileDescriptor, out pipeline.Outcome) extractResult {
	res := extractResult{File: file.Location().String()}
	if out.Report == nil {
		res.Error = "not processed"
		return res
	}
	sum := out.Report.Summary()
	res.ReportID = out.Report.ID()
	res.Status = out.Report.Status()
	res.Stage = out.Stage
	res.Error = out.Report.ErrorMessage()
	res.Summary = &sum
	return res
}
