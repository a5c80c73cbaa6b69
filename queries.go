package sentimentoor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DayLayout is the target-date format used by the posts window.
const DayLayout = "2006-01-02"

// The posts window runs from midnight to 23:30 UTC of the target day.
const (
	windowStart = "T00:00:00Z"
	windowEnd   = "T23:30:00Z"
)

// ParseDay parses a YYYY-MM-DD date as a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatDay formats t's UTC calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ListMembersQuery builds the seed request for the members of a list.
func ListMembersQuery(base, listID string) Request {
	u, _ := EndpointURL(base, OpListMembers, listID)
	return Request{Endpoint: OpListMembers, URL: u}
}

// FollowingQuery builds the seed request for the accounts a user follows.
func FollowingQuery(base, userID string) Request {
	u, _ := EndpointURL(base, OpFollowing, userID)
	return Request{Endpoint: OpFollowing, URL: u}
}

// UserPostsQuery builds the seed request for a user's posts on one day.
func UserPostsQuery(base, userID string, day time.Time) Request {
	u, _ := EndpointURL(base, OpUserPosts, userID)
	d := FormatDay(day)
	return Request{
		Endpoint: OpUserPosts,
		URL:      u + "?start_time=" + d + windowStart + "&end_time=" + d + windowEnd,
	}
}

// GetListMembers fetches every member of a list.
func (c *Client) GetListMembers(ctx context.Context, listID string) ([]User, error) {
	req := ListMembersQuery(c.cfg.BaseURL, listID)
	req.Logger = c.log
	users, err := FetchAll[User](ctx, c, req, DecodeUserPage, c.cfg.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", OpListMembers, listID, err)
	}
	c.log.Debug("list members fetched", slog.String("list_id", listID), slog.Int("count", len(users)))
	return users, nil
}

// GetFollowing fetches every account a user follows.
func (c *Client) GetFollowing(ctx context.Context, userID string) ([]User, error) {
	req := FollowingQuery(c.cfg.BaseURL, userID)
	req.Logger = c.log
	users, err := FetchAll[User](ctx, c, req, DecodeUserPage, c.cfg.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", OpFollowing, userID, err)
	}
	c.log.Debug("following fetched", slog.String("user_id", userID), slog.Int("count", len(users)))
	return users, nil
}

// GetUserPosts fetches a user's posts within the day's window.
func (c *Client) GetUserPosts(ctx context.Context, userID string, day time.Time) ([]Post, error) {
	req := UserPostsQuery(c.cfg.BaseURL, userID, day)
	req.Logger = c.log
	posts, err := FetchAll[Post](ctx, c, req, DecodePostPage, c.cfg.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", OpUserPosts, userID, err)
	}
	c.log.Debug("posts fetched",
		slog.String("user_id", userID),
		slog.String("day", FormatDay(day)),
		slog.Int("count", len(posts)))
	return posts, nil
}
