package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/domain/platform"
)

const (
	shutdownTimeout = 10 * time.Second
	pollInterval    = 250 * time.Millisecond
)

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Print the platform each URL belongs to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLATFORM\tCONTENT ID\tURL")
			for _, raw := range args {
				kind := platform.Classify(raw)
				id := platform.ContentID(kind, raw)
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, id, raw)
			}
			return tw.Flush()
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Print content metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, closeFn, err := a.engine()
			if err != nil {
				return err
			}
			defer closeFn()

			info, err := svcs.Downloads.QueryInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func (a *app) fetchCmd() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a URL and print where the artifact was written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return a.fetch(ctx, cmd, args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Format hint: best, worst, audio, mp3, 720p, image, ...")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up and cancel the job after this long (0 waits forever)")
	return cmd
}

func (a *app) fetch(ctx context.Context, cmd *cobra.Command, url, format string) error {
	svcs, closeFn, err := a.engine()
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := svcs.Downloads.SubmitDownload(ctx, url, format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job %s submitted\n", id)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastStatus, lastProgress := model.JobStatus(""), -1
	for {
		job, err := svcs.Downloads.GetStatus(context.WithoutCancel(ctx), id)
		if err != nil {
			return err
		}
		if job.Status != lastStatus || job.ProgressPercent != lastProgress {
			fmt.Fprintf(out, "%-10s %3d%%\n", job.Status, job.ProgressPercent)
			lastStatus, lastProgress = job.Status, job.ProgressPercent
		}

		switch job.Status {
		case model.JobStatusCompleted:
			return printResult(cmd, job)
		case model.JobStatusFailed:
			return errors.New(job.ErrorDetail)
		}

		select {
		case <-ctx.Done():
			if cerr := svcs.Downloads.CancelJob(context.WithoutCancel(ctx), id); cerr != nil {
				a.logger.Warn("cancel job", "job_id", id, "error", cerr)
			}
			return fmt.Errorf("job %s abandoned: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printResult(cmd *cobra.Command, job *model.Job) error {
	if job.Result == nil {
		return errors.New("completed job has no result")
	}
	r := job.Result
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = r.Filename
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "saved %q to %s (%s, %s)\n",
		title, r.Path, humanize.Bytes(uint64(r.Size)), r.Format)
	return err
}

func (a *app) platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms with a registered extractor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svcs, closeFn, err := a.engine()
			if err != nil {
				return err
			}
			defer closeFn()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, kind := range svcs.Downloads.Platforms() {
				fmt.Fprintf(tw, "%s\t%s\n", kind, kind.DisplayName())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nformat hints: %s\n", strings.Join(model.KnownFormatHints(), ", "))
			return err
		},
	}
}
