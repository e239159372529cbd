package domain

import "time"

// Course is a tenant that scopes documents, guardrails and a vector index.
type Course struct {
	// ID is the caller-supplied slug, e.g. "CS101".
	ID string

	// Name is the display name. Defaults to the ID on implicit creation.
	Name string

	// Guardrails is policy text appended to every system prompt for the course.
	Guardrails string

	// CreatedAt is when the course was first seen.
	CreatedAt time.Time
}

// CourseUpdate carries the fields to change on a course.
// Nil fields are left untouched.
type CourseUpdate struct {
	Name       *string
	Guardrails *string
}
