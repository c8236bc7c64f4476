package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

type jobStatsOptions struct {
	Type    model.JobType
	Timeout time.Duration
}

type listJobsOptions struct {
	Type    model.JobType
	Limit   int
	Timeout time.Duration
}

func parseJobStatsFlags(args []string) (jobStatsOptions, error) {
	fs := flag.NewFlagSet("job-stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var rawType string
	opts := jobStatsOptions{Timeout: time.Minute}
	fs.StringVar(&rawType, "type", string(model.JobTypeWebhook), "Job type to summarize")
	fs.DurationVar(&opts.Timeout, "timeout", time.Minute, "Maximum duration to wait for the query")

	if err := fs.Parse(args); err != nil {
		return jobStatsOptions{}, err
	}

	jobType, err := parseJobType(rawType)
	if err != nil {
		return jobStatsOptions{}, err
	}
	opts.Type = jobType

	if opts.Timeout <= 0 {
		return jobStatsOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseListJobsFlags(args []string) (listJobsOptions, error) {
	fs := flag.NewFlagSet("list-jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var rawType string
	opts := listJobsOptions{Timeout: time.Minute}
	fs.StringVar(&rawType, "type", string(model.JobTypeWebhook), "Job type to list")
	fs.IntVar(&opts.Limit, "limit", 20, "Maximum rows to display")
	fs.DurationVar(&opts.Timeout, "timeout", time.Minute, "Maximum duration to wait for the query")

	if err := fs.Parse(args); err != nil {
		return listJobsOptions{}, err
	}

	jobType, err := parseJobType(rawType)
	if err != nil {
		return listJobsOptions{}, err
	}
	opts.Type = jobType

	if opts.Limit <= 0 {
		return listJobsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Timeout <= 0 {
		return listJobsOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseJobType(raw string) (model.JobType, error) {
	var jobType model.JobType
	if err := jobType.UnmarshalText([]byte(raw)); err != nil {
		return "", fmt.Errorf("invalid job type %q: %w", raw, err)
	}
	return jobType, nil
}

func runJobStats(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobStatsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		stats, statsErr := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}).Stats(ctx, opts.Type)
		if statsErr != nil {
			return fmt.Errorf("fetch job stats: %w", statsErr)
		}
		return printJobStats(os.Stdout, opts.Type, stats)
	})
}

func printJobStats(out io.Writer, jobType model.JobType, stats *model.JobStats) error {
	if stats == nil {
		return errors.New("job stats are required")
	}

	if err := writef(out, "\nJob Stats (%s)\n", jobType); err != nil {
		return fmt.Errorf("print stats header: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Status\tCount"); err != nil {
		return fmt.Errorf("print stats columns: %w", err)
	}
	rows := []struct {
		label string
		count int
	}{
		{"Pending", stats.Pending},
		{"Running", stats.Running},
		{"Completed", stats.Completed},
		{"Failed", stats.Failed},
	}
	for _, row := range rows {
		if err := writef(w, "%s\t%d\n", row.label, row.count); err != nil {
			return fmt.Errorf("print stats row %q: %w", row.label, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush stats table: %w", err)
	}
	return nil
}

func runListJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseListJobsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		jobs, listErr := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}).
			ListRecentByType(ctx, opts.Type, opts.Limit)
		if listErr != nil {
			return fmt.Errorf("list recent jobs: %w", listErr)
		}
		return printJobRows(os.Stdout, opts.Type, jobs)
	})
}

func printJobRows(out io.Writer, jobType model.JobType, jobs []*model.Job) error {
	if len(jobs) == 0 {
		if err := writef(out, "No %s jobs found\n", jobType); err != nil {
			return fmt.Errorf("print empty jobs notice: %w", err)
		}
		return nil
	}

	if err := writef(out, "\nRecent Jobs (%s)\n", jobType); err != nil {
		return fmt.Errorf("print jobs header: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tStatus\tAttempts\tScheduled\tLast Error"); err != nil {
		return fmt.Errorf("print jobs columns: %w", err)
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		lastError := ""
		if job.LastError != nil {
			lastError = truncateError(*job.LastError)
		}
		if err := writef(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			job.ID,
			job.Status,
			job.RetryCount,
			job.MaxRetries,
			job.ScheduledAt.Format(time.RFC3339),
			lastError,
		); err != nil {
			return fmt.Errorf("print job row %q: %w", job.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush jobs table: %w", err)
	}
	if err := writef(out, "\nTotal: %d\n", len(jobs)); err != nil {
		return fmt.Errorf("print jobs total: %w", err)
	}
	return nil
}

const maxErrorColumnWidth = 60

func truncateError(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	if len(msg) <= maxErrorColumnWidth {
		return msg
	}
	return msg[:maxErrorColumnWidth-3] + "..."
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
