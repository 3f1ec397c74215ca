package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"learnhub/m/domain"
	"learnhub/m/internal/store"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.User
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[int64]domain.User{}}
}

func (f *fakeUsers) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.User{}, f.err
	}
	for _, row := range f.rows {
		if row.Email == u.Email {
			return domain.User{}, store.ErrDuplicateKey
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = "2024-01-01 00:00:00"
	f.rows[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.User{}, f.err
	}
	u, ok := f.rows[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.User{}, f.err
	}
	for _, u := range f.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.User, 0, len(f.rows))
	for _, u := range f.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeCourses struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Course
	updates int
	deletes int
}

func newFakeCourses() *fakeCourses {
	return &fakeCourses{rows: map[int64]domain.Course{}}
}

func (f *fakeCourses) Create(ctx context.Context, c domain.Course) (domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.InstructorID <= 0 {
		return domain.Course{}, store.ErrForeignKey
	}
	f.nextID++
	c.ID = f.nextID
	f.rows[c.ID] = c
	return c, nil
}

func (f *fakeCourses) GetByID(ctx context.Context, id int64) (domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return domain.Course{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCourses) List(ctx context.Context) ([]domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Course{}
	for _, c := range f.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCourses) ListByInstructor(ctx context.Context, instructorID int64) ([]domain.Course, error) {
	all, _ := f.List(ctx)
	out := []domain.Course{}
	for _, c := range all {
		if c.InstructorID == instructorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourses) Update(ctx context.Context, id int64, patch domain.CoursePatch) (domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	c, ok := f.rows[id]
	if !ok {
		return domain.Course{}, store.ErrNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	f.rows[id] = c
	return c, nil
}

func (f *fakeCourses) Delete(ctx context.Context, id int64) (domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	c, ok := f.rows[id]
	if !ok {
		return domain.Course{}, store.ErrNotFound
	}
	delete(f.rows, id)
	return c, nil
}

var errBoom = errors.New("boom")
