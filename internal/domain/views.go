package domain

import "time"

// TestSummary is the listing projection of a test, without sessions.
type TestSummary struct {
	ID         string        `json:"id"`
	Slug       string        `json:"slug"`
	Title      LocalizedText `json:"title"`
	CoverImage string        `json:"cover_image,omitempty"`
	CategoryID string        `json:"category_id"`
	TotalVotes int           `json:"total_votes"`
	IsActive   bool          `json:"is_active"`
	Trend      bool          `json:"trend"`
	Popular    bool          `json:"popular"`
	EndDate    *time.Time    `json:"end_date,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Summary builds the listing projection of the test.
func (t *Test) Summary() TestSummary {
	return TestSummary{
		ID:         t.ID,
		Slug:       t.Slug,
		Title:      t.Title,
		CoverImage: t.CoverImage,
		CategoryID: t.CategoryID,
		TotalVotes: t.TotalVotes,
		IsActive:   t.IsActive,
		Trend:      t.Trend,
		Popular:    t.Popular,
		EndDate:    t.EndDate,
		CreatedAt:  t.CreatedAt,
	}
}

// SessionProgress is the caller-facing view of an elimination session.
type SessionProgress struct {
	SessionID      string     `json:"session_id"`
	CurrentPair    []Option   `json:"current_pair"`
	RemainingCount int        `json:"remaining_count"`
	RoundsPlayed   int        `json:"rounds_played"`
	IsComplete     bool       `json:"is_complete"`
	FinalWinner    *Option    `json:"final_winner,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Progress resolves a session's option references into full options for the
// API layer.
func (t *Test) Progress(s *VoteSession) SessionProgress {
	view := SessionProgress{
		SessionID:      s.SessionID,
		CurrentPair:    make([]Option, 0, len(s.CurrentPair)),
		RemainingCount: len(s.RemainingOptions),
		RoundsPlayed:   s.RoundsPlayed(),
		IsComplete:     s.IsComplete,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
	for _, id := range s.CurrentPair {
		if opt, err := t.Option(id); err == nil {
			view.CurrentPair = append(view.CurrentPair, *opt)
		}
	}
	if s.FinalWinner != "" {
		if opt, err := t.Option(s.FinalWinner); err == nil {
			view.FinalWinner = opt
		}
	}
	return view
}

// TallyView is the response of a direct vote: the refreshed aggregate.
type TallyView struct {
	TestID     string   `json:"test_id"`
	TotalVotes int      `json:"total_votes"`
	Options    []Option `json:"options"`
}

// Tally builds the post-vote aggregate view.
func (t *Test) Tally() TallyView {
	return TallyView{TestID: t.ID, TotalVotes: t.TotalVotes, Options: t.Options}
}

// GlobalStats aggregates site-wide voting activity.
type GlobalStats struct {
	TotalTests int `json:"total_tests"`
	TotalVotes int `json:"total_votes"`
}

// Pagination describes a page of a listing response.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}
