package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// DefaultChatModel is the upstream model used when a request names none.
const DefaultChatModel = "gpt-4o-mini"

// DefaultModelPrefix is the prefix of "<prefix>:<course>" virtual models.
const DefaultModelPrefix = "loom"

var courseTag = regexp.MustCompile(`\[course:([^\]]+)\]`)

// ModelResolver maps model identifiers to an upstream model and course.
type ModelResolver struct {
	defaultModel string
	prefix       string
}

// NewModelResolver creates a resolver. Empty arguments fall back to the defaults.
func NewModelResolver(defaultModel, prefix string) *ModelResolver {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = DefaultChatModel
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultModelPrefix
	}
	return &ModelResolver{defaultModel: defaultModel, prefix: prefix}
}

// DefaultModel returns the fallback upstream model.
func (r *ModelResolver) DefaultModel() string { return r.defaultModel }

// Prefix returns the virtual model prefix.
func (r *ModelResolver) Prefix() string { return r.prefix }

// Parse splits a model identifier into upstream model and course.
//
//	"gpt-4o@CS101" -> (gpt-4o, CS101)
//	"@CS101"       -> (default, CS101)
//	"loom:CS101"   -> (default, CS101)
//	"gpt-4o"       -> (gpt-4o, none)
//	""             -> (default, none)
func (r *ModelResolver) Parse(model string) domain.ModelRoute {
	model = strings.TrimSpace(model)
	if model == "" {
		return domain.ModelRoute{Upstream: r.defaultModel}
	}

	if upstream, course, ok := strings.Cut(model, "@"); ok {
		upstream = strings.TrimSpace(upstream)
		if upstream == "" {
			upstream = r.defaultModel
		}
		return domain.ModelRoute{Upstream: upstream, CourseID: strings.TrimSpace(course)}
	}

	if course, ok := strings.CutPrefix(model, r.prefix+":"); ok {
		return domain.ModelRoute{Upstream: r.defaultModel, CourseID: strings.TrimSpace(course)}
	}

	return domain.ModelRoute{Upstream: model}
}

// ResolveCourse picks the course for a chat request. The first non-empty
// source wins: forced, the model route, the loom extension, then the most
// recent user message carrying a [course:ID] tag.
func (r *ModelResolver) ResolveCourse(req domain.ChatRequest, forced string, route domain.ModelRoute) (string, error) {
	if c := strings.TrimSpace(forced); c != "" {
		return c, nil
	}
	if route.CourseID != "" {
		return route.CourseID, nil
	}
	if req.Loom != nil {
		if c := strings.TrimSpace(req.Loom.CourseID); c != "" {
			return c, nil
		}
	}
	if c, ok := CourseTag(req.Messages); ok {
		return c, nil
	}
	return "", domain.ErrMissingCourse
}

// CourseTag scans user messages newest first and returns the course of the
// first [course:ID] marker found.
func CourseTag(messages []domain.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != domain.RoleUser {
			continue
		}
		if m := courseTag.FindStringSubmatch(messages[i].Content); m != nil {
			if c := strings.TrimSpace(m[1]); c != "" {
				return c, true
			}
		}
	}
	return "", false
}
