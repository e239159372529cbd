package driving

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// ChatService answers chat completion requests with course context.
type ChatService interface {
	// Complete resolves the course and upstream model, retrieves context and
	// calls the provider. forcedCourse, when non-empty, wins over every
	// other course source.
	Complete(ctx context.Context, req domain.ChatRequest, forcedCourse string) (*domain.ChatResponse, error)
}

// RetrievalService finds course text relevant to a query.
type RetrievalService interface {
	// Retrieve returns the best matching chunks of the course, best first.
	// Index failures yield an empty result; only embedding failures are returned.
	Retrieve(ctx context.Context, courseID, query string) ([]domain.RetrievedContext, error)

	// RetrieveTopK is Retrieve with an explicit result count.
	RetrieveTopK(ctx context.Context, courseID, query string, k int) ([]domain.RetrievedContext, error)
}
