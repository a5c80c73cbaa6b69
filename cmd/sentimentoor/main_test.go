package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sentimentoor "github.com/anatolykoptev/go-sentimentoor"
	"github.com/anatolykoptev/go-sentimentoor/config"
	"github.com/anatolykoptev/go-sentimentoor/runner"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/2/lists/L/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"1","name":"One","username":"one"}],"meta":{"result_count":1}}`)
	})
	mux.HandleFunc("/2/users/1/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-03-01T00:00:00Z", r.URL.Query().Get("start_time"))
		assert.Equal(t, "2024-03-01T23:30:00Z", r.URL.Query().Get("end_time"))
		fmt.Fprint(w, `{"data":[{"id":"a","text":"What a great day"}],"meta":{"result_count":1}}`)
	})
	mux.HandleFunc("/2/users/42/following", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"7","name":"Seven","username":"seven"}],"meta":{"result_count":1}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	transportOverride = sentimentoor.HTTPTransport(srv.Client())
	t.Cleanup(func() { transportOverride = nil })
	return srv
}

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sentimentoor.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestRunCommand_JSON(t *testing.T) {
	srv := fakeAPI(t)
	path := writeConfig(t, map[string]any{
		"twitter_bearer_token": "tok",
		"twitter_list_id":      "L",
		"api_base_url":         srv.URL,
	})

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"sentimentoor", "-c", path, "run", "--date", "2024-03-01", "--format", "json"})
	require.NoError(t, err, stderr.String())

	var report runner.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "L", report.ListID)
	assert.Equal(t, "2024-03-01", report.Day)
	require.Len(t, report.Users, 1)
	assert.Equal(t, 1, report.Users[0].PostCount)
	assert.Greater(t, report.Summary.Mean, 0.0)
}

func TestFollowingCommand(t *testing.T) {
	srv := fakeAPI(t)
	path := writeConfig(t, map[string]any{
		"twitter_bearer_token": "tok",
		"twitter_user_id":      "42",
		"api_base_url":         srv.URL,
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, newApp(&stdout, &stderr).Run([]string{"sentimentoor", "-c", path, "following"}))
	assert.Equal(t, "7\t@seven\tSeven\n", stdout.String())
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{"twitter_list_id": "L"})

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"sentimentoor", "-c", path, "run"})
	var cerr *config.Error
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "twitter_bearer_token")
	assert.Empty(t, stdout.String())
}

func TestRequestTally(t *testing.T) {
	var buf bytes.Buffer
	tally := newRequestTally(newTestLogger(&buf))
	tally.record(sentimentoor.OpUserPosts, true, false)
	tally.record(sentimentoor.OpUserPosts, false, true)
	tally.record(sentimentoor.OpUserPosts, false, false)
	tally.log()

	out := buf.String()
	assert.Contains(t, out, "endpoint=UserTweets ok=1 failed=1 rate_limited=1")
	assert.NotContains(t, out, "ListMembers")
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return (&config.Config{}).NewLogger(buf)
}
