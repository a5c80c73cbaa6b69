package sentimentoor

// User is a member of a list (or an account someone follows).
type User struct {
	ID          string
	DisplayName string
	Handle      string
}

// Post is a single post authored by a User.
type Post struct {
	ID   string
	Text string
}

// Page is one decoded response envelope of a cursor-paginated endpoint.
// An empty NextCursor marks the last page.
type Page[T any] struct {
	Items       []T
	ResultCount int
	NextCursor  string
	OldestID    string
	NewestID    string
}
