package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"versus-be/internal/domain"
	"versus-be/internal/repository"
)

// fakeTestRepo is an in-memory TestRepository with real compare-and-swap
// semantics: documents are stored as JSON and carry a version, and tests can
// inject lost races via conflictsLeft.
type fakeTestRepo struct {
	mu            sync.Mutex
	docs          map[string][]byte
	versions      map[string]int64
	conflictsLeft int
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{
		docs:     make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (f *fakeTestRepo) Create(ctx context.Context, test *domain.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := json.Marshal(test)
	if err != nil {
		return err
	}
	f.docs[test.ID] = doc
	f.versions[test.ID] = 1
	return nil
}

func (f *fakeTestRepo) Get(ctx context.Context, id string) (*domain.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decode(id)
}

func (f *fakeTestRepo) decode(id string) (*domain.Test, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrTestNotFound
	}
	var test domain.Test
	if err := json.Unmarshal(doc, &test); err != nil {
		return nil, err
	}
	return &test, nil
}

func (f *fakeTestRepo) GetBySlug(ctx context.Context, slug string) (*domain.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return nil, err
		}
		if test.Slug == slug {
			return test, nil
		}
	}
	return nil, domain.ErrTestNotFound
}

func (f *fakeTestRepo) Update(ctx context.Context, id string, updateFn func(test *domain.Test) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	test, err := f.decode(id)
	if err != nil {
		return err
	}
	if err := updateFn(test); err != nil {
		return err
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return repository.ErrVersionConflict
	}

	doc, err := json.Marshal(test)
	if err != nil {
		return err
	}
	f.docs[id] = doc
	f.versions[id]++
	return nil
}

func (f *fakeTestRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return domain.ErrTestNotFound
	}
	delete(f.docs, id)
	delete(f.versions, id)
	return nil
}

func (f *fakeTestRepo) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Test, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tests []*domain.Test
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return nil, 0, err
		}
		if filter.CategoryID != "" && test.CategoryID != filter.CategoryID {
			continue
		}
		if filter.IsActive != nil && test.IsActive != *filter.IsActive {
			continue
		}
		tests = append(tests, test)
	}
	return tests, len(tests), nil
}

func (f *fakeTestRepo) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tests []*domain.Test
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return nil, err
		}
		for _, s := range test.Sessions {
			if s.ParticipantID == participantID {
				tests = append(tests, test)
				break
			}
		}
	}
	return tests, nil
}

func (f *fakeTestRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var flipped int64
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return 0, err
		}
		if test.ExpireIfDue(now) {
			doc, err := json.Marshal(test)
			if err != nil {
				return 0, err
			}
			f.docs[id] = doc
			f.versions[id]++
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeTestRepo) ClearExpiredEndDates(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return 0, err
		}
		if test.EndDate != nil && !test.EndDate.After(now) {
			test.EndDate = nil
			doc, err := json.Marshal(test)
			if err != nil {
				return 0, err
			}
			f.docs[id] = doc
			f.versions[id]++
			cleared++
		}
	}
	return cleared, nil
}

func (f *fakeTestRepo) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.GlobalStats{}
	for id := range f.docs {
		test, err := f.decode(id)
		if err != nil {
			return nil, err
		}
		if test.IsActive {
			stats.TotalTests++
			stats.TotalVotes += test.TotalVotes
		}
	}
	return stats, nil
}

func (f *fakeTestRepo) version(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[id]
}

// fakeOutbox records enqueued events in memory.
type fakeOutbox struct {
	mu     sync.Mutex
	events []*domain.NotificationEvent
	nextID int64
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{}
}

func (f *fakeOutbox) Enqueue(ctx context.Context, event *domain.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = f.nextID
	event.CreatedAt = time.Now().UTC()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) FetchPending(ctx context.Context, limit int) ([]*domain.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []*domain.NotificationEvent
	for _, e := range f.events {
		if e.DispatchedAt == nil {
			pending = append(pending, e)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (f *fakeOutbox) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id && e.DispatchedAt == nil {
			stamped := at
			e.DispatchedAt = &stamped
		}
	}
	return nil
}

func (f *fakeOutbox) all() []*domain.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.NotificationEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeCategories resolves a fixed category set.
type fakeCategories struct {
	categories map[string]*domain.Category
}

func newFakeCategories(categories ...*domain.Category) *fakeCategories {
	f := &fakeCategories{categories: make(map[string]*domain.Category)}
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}
