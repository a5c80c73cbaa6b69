// Package sentiment scores post text and aggregates the scores into per-user
// and list-wide statistics. It performs no IO.
package sentiment

import (
	"log/slog"
	"math"

	sentimentoor "github.com/anatolykoptev/go-sentimentoor"
)

// Scorer maps text to a polarity score, conventionally in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to a Scorer.
type ScorerFunc func(text string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(text string) float64 { return f(text) }

// UserSentiment is the per-user result of one run.
type UserSentiment struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Handle      string  `json:"handle"`
	PostCount   int     `json:"post_count"`
	MeanScore   float64 `json:"mean_score"`
	// NoPosts is set when the user had nothing to score; MeanScore is then 0.
	NoPosts bool `json:"no_posts"`
}

// Aggregator turns post texts into UserSentiment values.
type Aggregator struct {
	scorer Scorer
	log    *slog.Logger
}

// NewAggregator creates an Aggregator. A nil logger means slog.Default().
func NewAggregator(scorer Scorer, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{scorer: scorer, log: logger}
}

// ScorePost scores one text. Non-finite scores become 0 and the result is
// clamped to [-1, 1].
func (a *Aggregator) ScorePost(text string) float64 {
	s := a.scorer.Score(text)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		a.log.Debug("non-finite sentiment normalized to 0", slog.Float64("raw", s))
		return 0
	}
	return max(-1, min(1, s))
}

// ScoreUser scores every post of user and returns the user's mean.
func (a *Aggregator) ScoreUser(user sentimentoor.User, posts []sentimentoor.Post) UserSentiment {
	scores := make([]float64, 0, len(posts))
	for _, p := range posts {
		s := a.ScorePost(p.Text)
		a.log.Debug("post scored",
			slog.String("user", user.Handle),
			slog.String("post_id", p.ID),
			slog.Float64("score", s))
		scores = append(scores, s)
	}

	mean, ok := UserMean(scores)
	return UserSentiment{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Handle:      user.Handle,
		PostCount:   len(posts),
		MeanScore:   mean,
		NoPosts:     !ok,
	}
}
