package sentimentoor

import (
	"fmt"
	"net/url"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
)

const defaultBaseURL = "https://api.twitter.com"

// Operation names, used for rate limiting, metrics and error messages.
const (
	OpListMembers = "ListMembers"
	OpUserPosts   = "UserTweets"
	OpFollowing   = "Following"
)

// Endpoint holds the operation name and the path template of a v2 resource.
type Endpoint struct {
	Name string
	Path string
}

// URL returns the full URL for this endpoint with id substituted into the path.
func (e Endpoint) URL(base, id string) string {
	return base + fmt.Sprintf(e.Path, url.PathEscape(id))
}

// Endpoints maps operation names to their v2 paths.
var Endpoints = map[string]Endpoint{
	OpListMembers: {Name: OpListMembers, Path: "/2/lists/%s/members"},
	OpUserPosts:   {Name: OpUserPosts, Path: "/2/users/%s/tweets"},
	OpFollowing:   {Name: OpFollowing, Path: "/2/users/%s/following"},
}

// RateLimitWindow is the length of a v2 rate-limit window.
const RateLimitWindow = 15 * time.Minute

// DefaultRateLimits are the v2 app-auth limits per token and window.
var DefaultRateLimits = map[string]ratelimit.Config{
	OpListMembers: {RequestsPerWindow: 75, WindowDuration: RateLimitWindow},
	OpUserPosts:   {RequestsPerWindow: 1500, WindowDuration: RateLimitWindow},
	OpFollowing:   {RequestsPerWindow: 15, WindowDuration: RateLimitWindow},
}

// EndpointURL returns the URL for a named operation, or an error if unknown.
func EndpointURL(base, operation, id string) (string, error) {
	ep, ok := Endpoints[operation]
	if !ok {
		return "", fmt.Errorf("unknown operation: %s", operation)
	}
	return ep.URL(base, id), nil
}
