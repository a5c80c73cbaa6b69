// Package runner sequences one sentiment run over a list: fetch the members,
// fetch and score each member's posts for a day, summarize, report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	sentimentoor "github.com/anatolykoptev/go-sentimentoor"
	"github.com/anatolykoptev/go-sentimentoor/sentiment"
)

// Step names used in StepError.
const (
	StepListMembers = "list members"
	StepUserPosts   = "user posts"
	StepReport      = "report"
)

// Source is the read side of the API the run needs.
type Source interface {
	GetListMembers(ctx context.Context, listID string) ([]sentimentoor.User, error)
	GetUserPosts(ctx context.Context, userID string, day time.Time) ([]sentimentoor.Post, error)
}

// Reporter receives the finished report.
type Reporter interface {
	Report(ctx context.Context, r *Report) error
}

// Config controls a single run.
type Config struct {
	ListID string
	// Day is the UTC day whose posts are scored. Zero means today.
	Day time.Time
	// Concurrency is the number of members processed in parallel. <=1 is sequential.
	Concurrency int
	// ContinueOnError records failed members in the report instead of aborting.
	ContinueOnError bool
}

// MemberFailure records a member whose posts could not be fetched.
type MemberFailure struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
	Error  string `json:"error"`
}

// Report is the outcome of one run.
type Report struct {
	ListID   string                    `json:"list_id"`
	Day      string                    `json:"day"`
	Users    []sentiment.UserSentiment `json:"users"`
	Summary  sentiment.Summary         `json:"summary"`
	Failures []MemberFailure           `json:"failures,omitempty"`
}

// StepError identifies the step (and member, if any) a run failed at.
type StepError struct {
	Step   string
	UserID string
	Handle string
	Err    error
}

func (e *StepError) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("%s for user %s (@%s): %v", e.Step, e.UserID, e.Handle, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner wires a Source, an Aggregator and a Reporter together.
type Runner struct {
	src      Source
	agg      *sentiment.Aggregator
	reporter Reporter
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Runner. A nil reporter skips reporting; a nil logger means slog.Default().
func New(src Source, agg *sentiment.Aggregator, reporter Reporter, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		src:      src,
		agg:      agg,
		reporter: reporter,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
	}
}

// Run executes the whole run and returns the report that was handed to the reporter.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	day := r.cfg.Day
	if day.IsZero() {
		day = r.now().UTC()
	}
	dayStr := sentimentoor.FormatDay(day)

	r.log.Info("run started", slog.String("list_id", r.cfg.ListID), slog.String("day", dayStr))

	members, err := r.src.GetListMembers(ctx, r.cfg.ListID)
	if err != nil {
		return nil, &StepError{Step: StepListMembers, Err: err}
	}
	r.log.Info("list members fetched", slog.Int("count", len(members)))

	results, failures, err := r.scoreMembers(ctx, members, day)
	if err != nil {
		return nil, err
	}

	// Failed members are dropped so they do not count as members without posts.
	users := make([]sentiment.UserSentiment, 0, len(results))
	for _, res := range results {
		if res != nil {
			users = append(users, *res)
		}
	}

	report := &Report{
		ListID:   r.cfg.ListID,
		Day:      dayStr,
		Users:    users,
		Summary:  sentiment.Summarize(users),
		Failures: failures,
	}

	if r.reporter != nil {
		if err := r.reporter.Report(ctx, report); err != nil {
			return report, &StepError{Step: StepReport, Err: err}
		}
	}

	r.log.Info("run finished",
		slog.Int("members", report.Summary.MemberCount),
		slog.Int("posts", report.Summary.TotalPostCount),
		slog.Int("failures", len(failures)))
	return report, nil
}

// scoreMembers fetches and scores every member. results[i] belongs to
// members[i] and is nil when that member failed under ContinueOnError.
func (r *Runner) scoreMembers(ctx context.Context, members []sentimentoor.User, day time.Time) ([]*sentiment.UserSentiment, []MemberFailure, error) {
	results := make([]*sentiment.UserSentiment, len(members))
	errs := make([]error, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Concurrency))

	for i, m := range members {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			posts, err := r.src.GetUserPosts(gctx, m.ID, day)
			if err != nil {
				stepErr := &StepError{Step: StepUserPosts, UserID: m.ID, Handle: m.Handle, Err: err}
				if r.cfg.ContinueOnError && !errors.Is(err, context.Canceled) {
					r.log.Warn("member skipped", slog.String("user", m.Handle), slog.Any("error", err))
					errs[i] = stepErr
					return nil
				}
				return stepErr
			}

			us := r.agg.ScoreUser(m, posts)
			r.log.Info("member scored",
				slog.String("user", m.Handle),
				slog.Int("posts", us.PostCount),
				slog.Float64("mean", us.MeanScore),
				slog.Bool("no_posts", us.NoPosts))
			results[i] = &us
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures []MemberFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, MemberFailure{
				UserID: members[i].ID,
				Handle: members[i].Handle,
				Error:  err.Error(),
			})
		}
	}
	return results, failures, nil
}
