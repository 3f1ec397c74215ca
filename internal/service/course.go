package service

import (
	"context"
	"errors"
	"strings"

	"learnhub/m/domain"
	"learnhub/m/internal/apperror"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/store"
)

const msgCourseNotFound = "Course not found"

// CourseStore is the persistence the course service needs.
type CourseStore interface {
	Create(ctx context.Context, c domain.Course) (domain.Course, error)
	GetByID(ctx context.Context, id int64) (domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	ListByInstructor(ctx context.Context, instructorID int64) ([]domain.Course, error)
	Update(ctx context.Context, id int64, patch domain.CoursePatch) (domain.Course, error)
	Delete(ctx context.Context, id int64) (domain.Course, error)
}

type CourseService struct {
	courses CourseStore
	log     logging.Logger
}

func NewCourseService(courses CourseStore, log logging.Logger) *CourseService {
	return &CourseService{courses: courses, log: log.With("component", "courses")}
}

// CreateCourse stores a course owned by instructorID. Callers pass the id of
// the authenticated identity, never a client-supplied value.
func (s *CourseService) CreateCourse(ctx context.Context, title, description string, instructorID int64) (domain.Course, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Course{}, apperror.Validation("title is required")
	}
	c, err := s.courses.Create(ctx, domain.Course{Title: title, Description: description, InstructorID: instructorID})
	if err != nil {
		if errors.Is(err, store.ErrForeignKey) {
			return domain.Course{}, apperror.Validation("instructor does not exist")
		}
		return domain.Course{}, apperror.Internal("create course", err)
	}
	s.log.Info(ctx, "course created", "course_id", c.ID, "instructor_id", instructorID)
	return c, nil
}

func (s *CourseService) GetCourses(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, apperror.Internal("list courses", err)
	}
	return courses, nil
}

// GetCourseByID returns the course with its instructor or a not-found error.
func (s *CourseService) GetCourseByID(ctx context.Context, id int64) (domain.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return domain.Course{}, notFoundOr(err, "get course")
	}
	return c, nil
}

func (s *CourseService) GetCoursesByInstructor(ctx context.Context, instructorID int64) ([]domain.Course, error) {
	courses, err := s.courses.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, apperror.Internal("list instructor courses", err)
	}
	return courses, nil
}

// UpdateCourse applies patch without any ownership check.
func (s *CourseService) UpdateCourse(ctx context.Context, id int64, patch domain.CoursePatch) (domain.Course, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Course{}, apperror.Validation("title must not be empty")
	}
	c, err := s.courses.Update(ctx, id, patch)
	if err != nil {
		return domain.Course{}, notFoundOr(err, "update course")
	}
	return c, nil
}

// DeleteCourse removes the course without any ownership check.
func (s *CourseService) DeleteCourse(ctx context.Context, id int64) (domain.Course, error) {
	c, err := s.courses.Delete(ctx, id)
	if err != nil {
		return domain.Course{}, notFoundOr(err, "delete course")
	}
	return c, nil
}

// UpdateOwnedCourse updates the course on behalf of identity. A missing course
// is reported before a foreign one.
func (s *CourseService) UpdateOwnedCourse(ctx context.Context, id int64, patch domain.CoursePatch, identity domain.Identity) (domain.Course, error) {
	if err := s.checkOwner(ctx, id, identity, "Not authorized to update this course"); err != nil {
		return domain.Course{}, err
	}
	c, err := s.UpdateCourse(ctx, id, patch)
	if err != nil {
		return domain.Course{}, err
	}
	s.log.Info(ctx, "course updated", "course_id", id, "user_id", identity.ID)
	return c, nil
}

// DeleteOwnedCourse deletes the course on behalf of identity with the same
// precedence as UpdateOwnedCourse.
func (s *CourseService) DeleteOwnedCourse(ctx context.Context, id int64, identity domain.Identity) (domain.Course, error) {
	if err := s.checkOwner(ctx, id, identity, "Not authorized to delete this course"); err != nil {
		return domain.Course{}, err
	}
	c, err := s.DeleteCourse(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}
	s.log.Info(ctx, "course deleted", "course_id", id, "user_id", identity.ID)
	return c, nil
}

// checkOwner fetches the course first and only then compares ownership.
// Ownership never changes, so the gap before the mutation is harmless.
func (s *CourseService) checkOwner(ctx context.Context, id int64, identity domain.Identity, deny string) error {
	existing, err := s.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if !IsOwner(existing, identity) {
		return apperror.Forbidden(deny)
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(msgCourseNotFound)
	}
	return apperror.Internal(op, err)
}
