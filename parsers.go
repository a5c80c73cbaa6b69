package sentimentoor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// envelope is the v2 wire shape shared by every paginated endpoint.
type envelope[R any] struct {
	Data []R `json:"data"`
	Meta *struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
		OldestID    string `json:"oldest_id"`
		NewestID    string `json:"newest_id"`
	} `json:"meta"`
}

type userObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type postObject struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DecodeUserPage parses a page of user objects (list members, following).
func DecodeUserPage(body []byte) (*Page[User], error) {
	return decodePage(body, parseUserObject)
}

// DecodePostPage parses a page of post objects (user timelines).
func DecodePostPage(body []byte) (*Page[Post], error) {
	return decodePage(body, parsePostObject)
}

// decodePage unmarshals the envelope and converts every raw item.
// The meta object is mandatory and result_count must match the item count.
func decodePage[R, T any](body []byte, convert func(R) (T, error)) (*Page[T], error) {
	var raw envelope[R]
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if raw.Meta == nil {
		return nil, fmt.Errorf("envelope has no meta object")
	}
	if raw.Meta.ResultCount != len(raw.Data) {
		return nil, fmt.Errorf("result_count %d does not match %d items", raw.Meta.ResultCount, len(raw.Data))
	}

	items := make([]T, 0, len(raw.Data))
	for i, r := range raw.Data {
		item, err := convert(r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return &Page[T]{
		Items:       items,
		ResultCount: raw.Meta.ResultCount,
		NextCursor:  strings.TrimSpace(raw.Meta.NextToken),
		OldestID:    raw.Meta.OldestID,
		NewestID:    raw.Meta.NewestID,
	}, nil
}

func parseUserObject(r userObject) (User, error) {
	if r.ID == "" {
		return User{}, fmt.Errorf("empty user id (username=%s)", r.Username)
	}
	return User{
		ID:          r.ID,
		DisplayName: r.Name,
		Handle:      r.Username,
	}, nil
}

func parsePostObject(r postObject) (Post, error) {
	if r.ID == "" {
		return Post{}, fmt.Errorf("empty post id")
	}
	return Post{ID: r.ID, Text: r.Text}, nil
}
