package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"learnhub/m/domain"
)

const courseColumns = `id, title, description, instructor_id`

// courseRow is a course joined with its instructor's public fields.
type courseRow struct {
	ID                  int64   `db:"id"`
	Title               string  `db:"title"`
	Description         string  `db:"description"`
	InstructorID        int64   `db:"instructor_id"`
	InstructorName      *string `db:"instructor_name"`
	InstructorEmail     string  `db:"instructor_email"`
	InstructorCreatedAt string  `db:"instructor_created_at"`
}

func (r courseRow) course() domain.Course {
	return domain.Course{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		InstructorID: r.InstructorID,
		Instructor: &domain.PublicUser{
			ID:        r.InstructorID,
			Name:      r.InstructorName,
			Email:     r.InstructorEmail,
			CreatedAt: r.InstructorCreatedAt,
		},
	}
}

const courseWithInstructor = `SELECT c.id, c.title, c.description, c.instructor_id,
        u.name AS instructor_name, u.email AS instructor_email, u.created_at AS instructor_created_at
    FROM courses c
    JOIN users u ON u.id = c.instructor_id`

// CourseRepository reads and writes rows of the courses table.
type CourseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course. An unknown instructor yields ErrForeignKey.
func (r *CourseRepository) Create(ctx context.Context, c domain.Course) (domain.Course, error) {
	var out domain.Course
	q := r.db.Rebind(`INSERT INTO courses (title, description, instructor_id) VALUES (?, ?, ?) RETURNING ` + courseColumns)
	if err := r.db.GetContext(ctx, &out, q, c.Title, c.Description, c.InstructorID); err != nil {
		return domain.Course{}, mapError(err)
	}
	return out, nil
}

// GetByID returns the course with its instructor joined.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (domain.Course, error) {
	var row courseRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(courseWithInstructor+` WHERE c.id = ?`), id); err != nil {
		return domain.Course{}, mapError(err)
	}
	return row.course(), nil
}

// List returns all courses with their instructors, ordered by id.
func (r *CourseRepository) List(ctx context.Context) ([]domain.Course, error) {
	var rows []courseRow
	if err := r.db.SelectContext(ctx, &rows, courseWithInstructor+` ORDER BY c.id`); err != nil {
		return nil, mapError(err)
	}
	courses := make([]domain.Course, len(rows))
	for i, row := range rows {
		courses[i] = row.course()
	}
	return courses, nil
}

// ListByInstructor returns the courses owned by instructorID, without the join.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID int64) ([]domain.Course, error) {
	courses := []domain.Course{}
	q := r.db.Rebind(`SELECT ` + courseColumns + ` FROM courses WHERE instructor_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &courses, q, instructorID); err != nil {
		return nil, mapError(err)
	}
	return courses, nil
}

// Update applies the non-nil fields of patch and returns the updated row.
func (r *CourseRepository) Update(ctx context.Context, id int64, patch domain.CoursePatch) (domain.Course, error) {
	var out domain.Course
	q := r.db.Rebind(`UPDATE courses SET title = COALESCE(?, title), description = COALESCE(?, description)
        WHERE id = ? RETURNING ` + courseColumns)
	if err := r.db.GetContext(ctx, &out, q, patch.Title, patch.Description, id); err != nil {
		return domain.Course{}, mapError(err)
	}
	return out, nil
}

// Delete removes the course and returns the deleted row.
func (r *CourseRepository) Delete(ctx context.Context, id int64) (domain.Course, error) {
	var out domain.Course
	q := r.db.Rebind(`DELETE FROM courses WHERE id = ? RETURNING ` + courseColumns)
	if err := r.db.GetContext(ctx, &out, q, id); err != nil {
		return domain.Course{}, mapError(err)
	}
	return out, nil
}
