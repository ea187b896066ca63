package domain

import (
	"fmt"
	"time"
)

// Option is one vote-able alternative inside a test. Identity is stable for
// the life of the test; only the tally fields mutate.
type Option struct {
	ID           string        `json:"id"`
	Title        LocalizedText `json:"title"`
	Image        string        `json:"image"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	Votes        int           `json:"votes"`
	WinRate      float64       `json:"win_rate"`
}

// TestStats carries aggregates derived from the option tallies. They are a
// projection: Recompute overwrites them on every mutation.
type TestStats struct {
	TotalComparisons      int     `json:"total_comparisons"`
	AverageVotesPerOption float64 `json:"average_votes_per_option"`
	MostPopularOption     string  `json:"most_popular_option,omitempty"`
}

// Test is the voting subject: an ordered set of options plus the vote sessions
// that have run against them. The whole document is the unit of consistency —
// every mutation is a read-modify-write of one Test.
type Test struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
	CoverImage  string        `json:"cover_image,omitempty"`
	CategoryID  string        `json:"category_id"`
	Options     []Option      `json:"options"`
	TotalVotes  int           `json:"total_votes"`
	IsActive    bool          `json:"is_active"`
	Trend       bool          `json:"trend"`
	Popular     bool          `json:"popular"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	CreatedBy   string        `json:"created_by"`
	Sessions    []VoteSession `json:"vote_sessions,omitempty"`
	Stats       TestStats     `json:"stats"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Option returns the option with the given id, or ErrOptionNotFound.
func (t *Test) Option(optionID string) (*Option, error) {
	for i := range t.Options {
		if t.Options[i].ID == optionID {
			return &t.Options[i], nil
		}
	}
	return nil, ErrOptionNotFound
}

// Recompute refreshes every derived aggregate from the option tallies:
// total votes, per-option win rates, the average and the most popular option.
// Ties on the most popular option keep the first option in storage order.
func (t *Test) Recompute() {
	total := 0
	for i := range t.Options {
		total += t.Options[i].Votes
	}
	t.TotalVotes = total

	popular := ""
	best := -1
	for i := range t.Options {
		opt := &t.Options[i]
		if total > 0 {
			opt.WinRate = float64(opt.Votes) / float64(total) * 100
		} else {
			opt.WinRate = 0
		}
		if opt.Votes > best {
			best = opt.Votes
			popular = opt.ID
		}
	}

	t.Stats.MostPopularOption = popular
	if len(t.Options) > 0 {
		t.Stats.AverageVotesPerOption = float64(total) / float64(len(t.Options))
	} else {
		t.Stats.AverageVotesPerOption = 0
	}
}

// ApplyVote applies a single flat vote to one option. Anonymous callers get no
// duplicate prevention here: one click, one increment.
func (t *Test) ApplyVote(optionID string) error {
	if !t.IsActive {
		return ErrTestInactive
	}
	opt, err := t.Option(optionID)
	if err != nil {
		return err
	}
	opt.Votes++
	t.Stats.TotalComparisons++
	t.Recompute()
	return nil
}

// ResetVotes zeroes every tally and derived aggregate. Vote session history is
// preserved on purpose: resets keep the audit trail of who ran which session.
// Idempotent.
func (t *Test) ResetVotes() {
	for i := range t.Options {
		t.Options[i].Votes = 0
		t.Options[i].WinRate = 0
	}
	t.TotalVotes = 0
	t.Stats = TestStats{}
}

// Expired reports whether the test's end date has passed at the given time.
func (t *Test) Expired(now time.Time) bool {
	return t.EndDate != nil && now.After(*t.EndDate)
}

// ExpireIfDue flips IsActive off once the end date has passed. Running it
// again has no additional effect, so the lazy sweep can invoke it freely.
func (t *Test) ExpireIfDue(now time.Time) bool {
	if t.IsActive && t.Expired(now) {
		t.IsActive = false
		return true
	}
	return false
}

// Validate checks the structural invariants required to persist a test.
func (t *Test) Validate() error {
	if !t.Title.HasDefault() {
		return fmt.Errorf("%w: title requires %s text", ErrValidation, DefaultLanguage)
	}
	if t.CategoryID == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if len(t.Options) < 2 {
		return fmt.Errorf("%w: at least 2 options are required", ErrValidation)
	}
	seen := make(map[string]struct{}, len(t.Options))
	for i := range t.Options {
		opt := &t.Options[i]
		if !opt.Title.HasDefault() {
			return fmt.Errorf("%w: option %d requires %s title", ErrValidation, i, DefaultLanguage)
		}
		if opt.Image == "" {
			return fmt.Errorf("%w: option %d requires an image", ErrValidation, i)
		}
		if opt.ID == "" {
			return fmt.Errorf("%w: option %d has no id", ErrValidation, i)
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: duplicate option id %s", ErrValidation, opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	return nil
}
