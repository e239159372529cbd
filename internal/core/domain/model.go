package domain

// ModelRoute is the result of parsing a model identifier.
type ModelRoute struct {
	// Upstream is the provider model to call.
	Upstream string

	// CourseID is the course encoded in the identifier, empty if none.
	CourseID string
}

// ModelInfo is a single entry of the model listing.
type ModelInfo struct {
	ID       string         `json:"id"`
	Object   string         `json:"object"`
	OwnedBy  string         `json:"owned_by"`
	Metadata *ModelMetadata `json:"metadata,omitempty"`
}

// ModelMetadata ties a virtual model to its course.
type ModelMetadata struct {
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
}
