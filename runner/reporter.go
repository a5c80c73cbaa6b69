package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
)

// LogReporter writes the report as structured log records.
type LogReporter struct {
	Logger *slog.Logger
}

// Report implements Reporter.
func (l LogReporter) Report(ctx context.Context, r *Report) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, u := range r.Users {
		logger.InfoContext(ctx, "user sentiment",
			slog.String("user_id", u.UserID),
			slog.String("handle", u.Handle),
			slog.String("name", u.DisplayName),
			slog.Int("posts", u.PostCount),
			slog.Float64("mean", u.MeanScore),
			slog.Bool("no_posts", u.NoPosts))
	}
	for _, f := range r.Failures {
		logger.WarnContext(ctx, "user failed", slog.String("user_id", f.UserID), slog.String("handle", f.Handle), slog.String("error", f.Error))
	}
	s := r.Summary
	logger.InfoContext(ctx, "list sentiment",
		slog.String("list_id", r.ListID),
		slog.String("day", r.Day),
		slog.Int("members", s.MemberCount),
		slog.Int("posts", s.TotalPostCount),
		slog.Int("users_with_posts", s.UsersWithPosts),
		slog.Float64("mean", s.Mean),
		slog.Float64("median", s.Median),
		slog.Bool("no_data", s.NoData))
	return nil
}

// Output formats understood by WriterReporter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// WriterReporter renders the report to W as an aligned table or as JSON.
type WriterReporter struct {
	W      io.Writer
	Format string
}

// Report implements Reporter.
func (w WriterReporter) Report(_ context.Context, r *Report) error {
	switch w.Format {
	case FormatJSON:
		enc := json.NewEncoder(w.W)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatText, "":
		return writeText(w.W, r)
	default:
		return fmt.Errorf("unknown output format %q", w.Format)
	}
}

func writeText(out io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "List %s, %s\n\n", r.ListID, r.Day)
	fmt.Fprintln(tw, "HANDLE\tNAME\tPOSTS\tMEAN")
	for _, u := range r.Users {
		mean := fmt.Sprintf("%+.4f", u.MeanScore)
		if u.NoPosts {
			mean = "-"
		}
		fmt.Fprintf(tw, "@%s\t%s\t%d\t%s\n", u.Handle, u.DisplayName, u.PostCount, mean)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(tw, "@%s\t(failed: %s)\t-\t-\n", f.Handle, f.Error)
	}
	fmt.Fprintln(tw)

	s := r.Summary
	fmt.Fprintf(tw, "Members:\t%d\n", s.MemberCount)
	fmt.Fprintf(tw, "Posts:\t%d\n", s.TotalPostCount)
	if s.NoData {
		fmt.Fprintln(tw, "Mean:\tno data")
		fmt.Fprintln(tw, "Median:\tno data")
	} else {
		fmt.Fprintf(tw, "Mean over %d users with posts:\t%+.4f\n", s.UsersWithPosts, s.Mean)
		fmt.Fprintf(tw, "Median over %d users with posts:\t%+.4f\n", s.UsersWithPosts, s.Median)
	}
	return tw.Flush()
}

// MultiReporter hands the report to every reporter and joins their errors.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, r *Report) error {
	var errs []error
	for _, rep := range m {
		if err := rep.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
