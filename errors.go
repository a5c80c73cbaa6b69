package sentimentoor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrFetch matches every *FetchError via errors.Is.
	ErrFetch = errors.New("fetch failed")
	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("decode failed")
	// ErrPageLimit is returned when a paginated fetch exceeds its page cap.
	ErrPageLimit = errors.New("page limit exceeded")
)

// FetchError reports a transport failure (Status 0) or a non-success
// response for a single page request.
type FetchError struct {
	Endpoint string
	URL      string
	Status   int
	Problem  string
	Body     string
	Err      error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: GET %s", e.Endpoint, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Problem != "" {
		fmt.Fprintf(&b, " (%s)", e.Problem)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// DecodeError reports a response body that does not match the expected envelope.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v (body: %s)", e.URL, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// errorClass categorizes API problem responses for targeted handling.
type errorClass int

const (
	errNone           errorClass = iota
	errNotFound                  // resource-not-found
	errUnauthorized              // 401 or not-authorized-for-resource
	errForbidden                 // client-forbidden
	errRateLimited               // 429 Too Many Requests
	errUsageCapped               // usage-capped
	errInvalidRequest            // invalid-request
	errOther                     // any other problem payload
)

var errorClassNames = map[errorClass]string{
	errNotFound:       "resource not found",
	errUnauthorized:   "not authorized",
	errForbidden:      "client forbidden",
	errRateLimited:    "rate limited",
	errUsageCapped:    "usage capped",
	errInvalidRequest: "invalid request",
	errOther:          "api error",
}

func (c errorClass) String() string { return errorClassNames[c] }

type apiProblem struct {
	Title  string `json:"title"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// classifyError inspects a response body for known problem types. Both the
// top-level problem shape and the "errors" array shape are recognised.
func classifyError(body []byte) errorClass {
	var resp struct {
		apiProblem
		Errors []apiProblem `json:"errors"`
	}
	if json.Unmarshal(body, &resp) != nil {
		return errNone
	}

	problems := resp.Errors
	if resp.Title != "" || resp.Type != "" || resp.Status != 0 {
		problems = append([]apiProblem{resp.apiProblem}, problems...)
	}
	if len(problems) == 0 {
		return errNone
	}

	for _, p := range problems {
		switch {
		case strings.HasSuffix(p.Type, "/resource-not-found"):
			return errNotFound
		case strings.HasSuffix(p.Type, "/not-authorized-for-resource"), p.Status == 401:
			return errUnauthorized
		case strings.HasSuffix(p.Type, "/client-forbidden"), p.Status == 403:
			return errForbidden
		case strings.HasSuffix(p.Type, "/usage-capped"):
			return errUsageCapped
		case p.Status == 429:
			return errRateLimited
		case strings.HasSuffix(p.Type, "/invalid-request"), p.Status == 400:
			return errInvalidRequest
		}
	}
	return errOther
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
