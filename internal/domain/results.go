package domain

import (
	"math"
	"sort"
)

// ResultEntry is one ranked row of a test's leaderboard.
type ResultEntry struct {
	Rank         int           `json:"rank"`
	OptionID     string        `json:"option_id"`
	Title        LocalizedText `json:"title"`
	Image        string        `json:"image"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	Votes        int           `json:"votes"`
	Percentage   float64       `json:"percentage"`
}

// SessionStatistics summarizes session participation for results views.
type SessionStatistics struct {
	TotalVotes        int `json:"total_votes"`
	TotalSessions     int `json:"total_sessions"`
	CompletedSessions int `json:"completed_sessions"`
	GuestSessions     int `json:"guest_sessions"`
	UserSessions      int `json:"user_sessions"`
}

// TallyResults ranks options by their cumulative direct-vote tally.
// Ties keep the original storage order; ranks are dense and 1-based.
func (t *Test) TallyResults() []ResultEntry {
	counts := make(map[string]int, len(t.Options))
	for _, opt := range t.Options {
		counts[opt.ID] = opt.Votes
	}
	return t.rankOptions(counts, t.TotalVotes)
}

// SessionResults ranks options by how many completed sessions crowned them
// final winner. The ranking rules match TallyResults exactly so the two read
// paths agree whenever both are populated.
func (t *Test) SessionResults() []ResultEntry {
	counts := make(map[string]int, len(t.Options))
	total := 0
	for _, s := range t.CompletedSessions() {
		counts[s.FinalWinner]++
		total++
	}
	return t.rankOptions(counts, total)
}

// SessionStats builds participation statistics across all sessions.
func (t *Test) SessionStats() SessionStatistics {
	stats := SessionStatistics{TotalSessions: len(t.Sessions)}
	for _, s := range t.Sessions {
		if s.IsComplete {
			stats.CompletedSessions++
		}
		if s.IsGuest {
			stats.GuestSessions++
		} else {
			stats.UserSessions++
		}
	}
	stats.TotalVotes = stats.CompletedSessions
	return stats
}

func (t *Test) rankOptions(counts map[string]int, total int) []ResultEntry {
	entries := make([]ResultEntry, 0, len(t.Options))
	for _, opt := range t.Options {
		votes := counts[opt.ID]
		percentage := 0.0
		if total > 0 {
			percentage = roundToOneDecimal(float64(votes) / float64(total) * 100)
		}
		entries = append(entries, ResultEntry{
			OptionID:     opt.ID,
			Title:        opt.Title,
			Image:        opt.Image,
			CustomFields: opt.CustomFields,
			Votes:        votes,
			Percentage:   percentage,
		})
	}
	// Stable sort keeps storage order on equal vote counts.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Votes > entries[j].Votes })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
