package sentiment

import "slices"

// Summary is the list-wide view over the per-user means of one run.
type Summary struct {
	MemberCount    int `json:"member_count"`
	TotalPostCount int `json:"total_post_count"`
	UsersWithPosts int `json:"users_with_posts"`
	// Mean and Median are taken over the UsersWithPosts users only.
	Mean   float64 `json:"mean_of_user_means"`
	Median float64 `json:"median_of_user_means"`
	// NoData is set when there were no user means to summarize.
	NoData bool `json:"no_data"`
}

// UserMean returns the arithmetic mean of scores, or (0, false) when empty.
func UserMean(scores []float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), true
}

// Median returns sorted[len/2] of values, which is the upper of the two
// middle elements for even counts. It returns (0, false) when empty.
// values is not modified.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[len(sorted)/2], true
}

// ListSummary computes the mean and median of the given user means.
func ListSummary(userMeans []float64) Summary {
	mean, ok := UserMean(userMeans)
	if !ok {
		return Summary{NoData: true}
	}
	median, _ := Median(userMeans)
	return Summary{
		UsersWithPosts: len(userMeans),
		Mean:           mean,
		Median:         median,
	}
}

// Summarize builds the list summary for a run. Every user counts toward
// MemberCount, but only users with posts contribute to Mean and Median.
func Summarize(users []UserSentiment) Summary {
	means := make([]float64, 0, len(users))
	total := 0
	for _, u := range users {
		total += u.PostCount
		if !u.NoPosts {
			means = append(means, u.MeanScore)
		}
	}

	s := ListSummary(means)
	s.MemberCount = len(users)
	s.TotalPostCount = total
	return s
}
