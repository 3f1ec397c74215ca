package api

import (
	"net/http"

	"learnhub/m/domain"
)

const msgInvalidCourseID = "Invalid course id"

type createCourseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type updateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !h.bind(w, r, &req) {
		return
	}
	identity, _ := IdentityFrom(r.Context())
	course, err := h.courses.CreateCourse(r.Context(), req.Title, req.Description, identity.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.GetCourses(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, courses)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, msgInvalidCourseID)
		return
	}
	course, err := h.courses.GetCourseByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

func (h *Handler) listInstructorCourses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid instructor id")
		return
	}
	courses, err := h.courses.GetCoursesByInstructor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, courses)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, msgInvalidCourseID)
		return
	}
	var req updateCourseRequest
	if !h.bind(w, r, &req) {
		return
	}
	identity, _ := IdentityFrom(r.Context())
	patch := domain.CoursePatch{Title: req.Title, Description: req.Description}
	course, err := h.courses.UpdateOwnedCourse(r.Context(), id, patch, identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, msgInvalidCourseID)
		return
	}
	identity, _ := IdentityFrom(r.Context())
	course, err := h.courses.DeleteOwnedCourse(r.Context(), id, identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}
