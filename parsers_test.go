package sentimentoor

import "testing"

func TestDecodeUserPage(t *testing.T) {
	body := `{
		"data": [
			{"id": "12345", "name": "Test User", "username": "testuser"},
			{"id": "67890", "name": "Other", "username": "other"}
		],
		"meta": {"result_count": 2, "next_token": "abc"}
	}`

	page, err := DecodeUserPage([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 users, got %d", len(page.Items))
	}
	u := page.Items[0]
	if u.ID != "12345" {
		t.Fatalf("expected ID 12345, got %s", u.ID)
	}
	if u.Handle != "testuser" {
		t.Fatalf("expected handle testuser, got %s", u.Handle)
	}
	if u.DisplayName != "Test User" {
		t.Fatalf("expected name Test User, got %s", u.DisplayName)
	}
	if page.NextCursor != "abc" {
		t.Fatalf("expected cursor abc, got %q", page.NextCursor)
	}
}

func TestDecodePostPage(t *testing.T) {
	body := `{
		"data": [{"id": "1", "text": "great day"}],
		"meta": {"result_count": 1, "oldest_id": "1", "newest_id": "1"}
	}`

	page, err := DecodePostPage([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].Text != "great day" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.NextCursor != "" {
		t.Fatalf("expected last page, got cursor %q", page.NextCursor)
	}
	if page.OldestID != "1" || page.NewestID != "1" {
		t.Fatalf("unexpected ids %q %q", page.OldestID, page.NewestID)
	}
}

func TestDecodePostPage_Empty(t *testing.T) {
	page, err := DecodePostPage([]byte(`{"meta":{"result_count":0}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected no posts, got %d", len(page.Items))
	}
}

func TestDecodePage_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid`},
		{"missing meta", `{"data":[{"id":"1","text":"x"}]}`},
		{"count mismatch", `{"data":[{"id":"1","text":"x"}],"meta":{"result_count":2}}`},
		{"empty id", `{"data":[{"id":"","text":"x"}],"meta":{"result_count":1}}`},
		{"wrong shape", `{"data":{"id":"1"},"meta":{"result_count":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePostPage([]byte(tt.body)); err == nil {
				t.Fatalf("expected error for %s", tt.body)
			}
		})
	}
}

func TestHasResponsePayload(t *testing.T) {
	tests := []struct {
		body     string
		expected bool
	}{
		{`{"data":[],"meta":{"result_count":0}}`, true},
		{`{"meta":{"result_count":0}}`, true},
		{`{"data":null}`, false},
		{`{"errors":[{"title":"Not Found Error"}]}`, false},
		{`not json`, false},
	}

	for _, tt := range tests {
		if got := hasResponsePayload([]byte(tt.body)); got != tt.expected {
			t.Fatalf("hasResponsePayload(%s) = %v, want %v", tt.body, got, tt.expected)
		}
	}
}
