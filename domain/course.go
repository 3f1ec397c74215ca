package domain

type Course struct {
	ID           int64       `json:"id" db:"id"`
	Title        string      `json:"title" db:"title"`
	Description  string      `json:"description" db:"description"`
	InstructorID int64       `json:"instructorId" db:"instructor_id"`
	Instructor   *PublicUser `json:"instructor,omitempty" db:"-"`
}

// CoursePatch holds the fields of a partial update. Nil fields are left as they are.
type CoursePatch struct {
	Title       *string
	Description *string
}

func (p CoursePatch) Empty() bool {
	return p.Title == nil && p.Description == nil
}
