package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Mnrljan/report-backend/model"
	"github.com/google/uuid"
)

// MemoryStore keeps reports and users in process memory. It backs
// development servers and tests; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
	users   map[string]*model.User
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*model.Report),
		users:   make(map[string]*model.User),
		now:     time.Now,
	}
}

func (s *MemoryStore) CreateReport(_ context.Context, report *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = uuid.New().String()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}
	report.UpdatedAt = report.CreatedAt
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *MemoryStore) FindReport(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(r), nil
}

func (s *MemoryStore) ListReports(_ context.Context, offset, limit int) ([]*model.Report, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset < 0 || offset >= len(all) {
		return []*model.Report{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]*model.Report, 0, end-offset)
	for _, r := range all[offset:end] {
		page = append(page, cloneReport(r))
	}
	return page, total, nil
}

func (s *MemoryStore) SubmitReport(_ context.Context, id string, version int64, formData map[string]any, submittedAt time.Time) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Version != version {
		return nil, ErrVersionConflict
	}

	r.FormData = maps.Clone(formData)
	r.Status = model.StatusSubmitted
	r.SubmissionDate = &submittedAt
	r.Version++
	r.UpdatedAt = s.now()
	return cloneReport(r), nil
}

func (s *MemoryStore) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) DeleteAllReports(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.reports))
	s.reports = make(map[string]*model.Report)
	return n, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	user.ID = uuid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Close(context.Context) error { return nil }

// Count returns the number of reports in the store
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// cloneReport copies r so callers never share the stored value.
// Nested form data values are shared; the store never mutates them.
func cloneReport(r *model.Report) *model.Report {
	out := *r
	out.FormData = maps.Clone(r.FormData)
	if r.SubmissionDate != nil {
		t := *r.SubmissionDate
		out.SubmissionDate = &t
	}
	return &out
}
