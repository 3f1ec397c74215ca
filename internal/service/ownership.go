package service

import "learnhub/m/domain"

// IsOwner reports whether identity is the instructor that owns course.
func IsOwner(course domain.Course, identity domain.Identity) bool {
	return identity.ID != 0 && course.InstructorID == identity.ID
}
