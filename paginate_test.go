package sentimentoor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGetter serves canned bodies keyed by URL and records every request.
type fakeGetter struct {
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (f *fakeGetter) Get(_ context.Context, _, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	body, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return []byte(body), nil
}

const membersURL = "https://api.test/2/lists/42/members"

func TestFetchAll_ThreePages(t *testing.T) {
	g := &fakeGetter{responses: map[string]string{
		membersURL: `{"data":[{"id":"1","name":"A","username":"a"},{"id":"2","name":"B","username":"b"}],
			"meta":{"result_count":2,"next_token":"tok2"}}`,
		membersURL + "?pagination_token=tok2": `{"data":[{"id":"3","name":"C","username":"c"},{"id":"4","name":"D","username":"d"}],
			"meta":{"result_count":2,"next_token":"tok3"}}`,
		membersURL + "?pagination_token=tok3": `{"data":[{"id":"5","name":"E","username":"e"}],
			"meta":{"result_count":1}}`,
	}}

	users, err := FetchAll[User](context.Background(), g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, []string{
		membersURL,
		membersURL + "?pagination_token=tok2",
		membersURL + "?pagination_token=tok3",
	}, g.calls)
}

func TestFetchAll_SinglePage(t *testing.T) {
	g := &fakeGetter{responses: map[string]string{
		membersURL: `{"data":[{"id":"9","name":"Solo","username":"solo"}],"meta":{"result_count":1}}`,
	}}

	users, err := FetchAll[User](context.Background(), g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 0)
	require.NoError(t, err)

	assert.Len(t, g.calls, 1)
	assert.Equal(t, []User{{ID: "9", DisplayName: "Solo", Handle: "solo"}}, users)
}

func TestFetchAll_CursorAppendedToExistingQuery(t *testing.T) {
	seed := "https://api.test/2/users/7/tweets?start_time=2024-03-01T00:00:00Z&end_time=2024-03-01T23:30:00Z"
	g := &fakeGetter{responses: map[string]string{
		seed:                          `{"data":[{"id":"p1","text":"a"}],"meta":{"result_count":1,"next_token":"n1"}}`,
		seed + "&pagination_token=n1": `{"data":[{"id":"p2","text":"b"}],"meta":{"result_count":1}}`,
	}}

	posts, err := FetchAll[Post](context.Background(), g, Request{Endpoint: OpUserPosts, URL: seed}, DecodePostPage, 0)
	require.NoError(t, err)
	assert.Equal(t, []Post{{ID: "p1", Text: "a"}, {ID: "p2", Text: "b"}}, posts)
	assert.Equal(t, seed+"&pagination_token=n1", g.calls[1])
}

func TestFetchAll_ErrorOnSecondPageAborts(t *testing.T) {
	fetchErr := &FetchError{Endpoint: OpListMembers, URL: membersURL + "?pagination_token=tok2", Status: 500}
	g := &fakeGetter{
		responses: map[string]string{
			membersURL: `{"data":[{"id":"1","name":"A","username":"a"}],"meta":{"result_count":1,"next_token":"tok2"}}`,
		},
		failures: map[string]error{membersURL + "?pagination_token=tok2": fetchErr},
	}

	users, err := FetchAll[User](context.Background(), g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 0)
	require.Error(t, err)
	assert.Nil(t, users)
	assert.ErrorIs(t, err, ErrFetch)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 500, fe.Status)
}

func TestFetchAll_DecodeErrorCarriesURL(t *testing.T) {
	g := &fakeGetter{
		responses: map[string]string{
			membersURL:                            `{"data":[],"meta":{"result_count":0,"next_token":"tok2"}}`,
			membersURL + "?pagination_token=tok2": `<html>oops</html>`,
		},
	}

	_, err := FetchAll[User](context.Background(), g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 0)
	require.ErrorIs(t, err, ErrDecode)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, membersURL+"?pagination_token=tok2", de.URL)
	assert.Contains(t, de.Body, "oops")
}

func TestFetchAll_PageCap(t *testing.T) {
	// Every page points back at itself.
	g := &fakeGetter{responses: map[string]string{
		membersURL:                            `{"data":[],"meta":{"result_count":0,"next_token":"loop"}}`,
		membersURL + "?pagination_token=loop": `{"data":[],"meta":{"result_count":0,"next_token":"loop"}}`,
	}}

	_, err := FetchAll[User](context.Background(), g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 3)
	require.ErrorIs(t, err, ErrPageLimit)
	assert.Len(t, g.calls, 3)
}

func TestFetchAll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &fakeGetter{}
	_, err := FetchAll[User](ctx, g, Request{Endpoint: OpListMembers, URL: membersURL}, DecodeUserPage, 0)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, g.calls)
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		cursor string
		want   string
	}{
		{"no query", "https://api.test/2/lists/1/members", "abc", "https://api.test/2/lists/1/members?pagination_token=abc"},
		{"existing query", "https://api.test/2/users/1/tweets?start_time=2024-01-01T00:00:00Z", "abc", "https://api.test/2/users/1/tweets?start_time=2024-01-01T00:00:00Z&pagination_token=abc"},
		{"escaped cursor", "https://api.test/x", "a b&c", "https://api.test/x?pagination_token=a+b%26c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextPageURL(tt.base, tt.cursor))
		})
	}
}

func TestFetchAll_LogsToRequestLogger(t *testing.T) {
	g := &fakeGetter{responses: map[string]string{
		membersURL:                            `{"data":[{"id":"1","name":"A","username":"a"}],"meta":{"result_count":1,"next_token":"tok2"}}`,
		membersURL + "?pagination_token=tok2": `{"data":[{"id":"2","name":"B","username":"b"}],"meta":{"result_count":1}}`,
	}}

	var buf, global bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&global, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	req := Request{Endpoint: OpListMembers, URL: membersURL, Logger: logger}
	_, err := FetchAll[User](context.Background(), g, req, DecodeUserPage, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(buf.String(), "page fetched"))
	assert.Empty(t, global.String())
}
