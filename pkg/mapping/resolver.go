package mapping

import (
	"context"
	"strings"

	"github.com/entrhq/formreplay/pkg/logging"
)

// Matcher picks the candidate title that best matches an unmapped title.
type Matcher interface {
	Match(ctx context.Context, title string, candidates []string) (string, error)
}

// Resolver looks titles up in a TitleMap and falls back to an optional
// Matcher for titles the table does not know.
type Resolver struct {
	titles  *TitleMap
	matcher Matcher
	log     *logging.Logger

	// matched memoizes matcher answers per title; "" records a miss
	matched map[string]string
}

// NewResolver creates a resolver. matcher may be nil.
func NewResolver(titles *TitleMap, matcher Matcher, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{
		titles:  titles,
		matcher: matcher,
		log:     log,
		matched: make(map[string]string),
	}
}

// Resolve returns the identifier for title.
func (r *Resolver) Resolve(ctx context.Context, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if id, ok := r.titles.Lookup(title); ok {
		return id, true
	}
	if r.matcher == nil {
		return "", false
	}

	if candidate, seen := r.matched[title]; seen {
		if candidate == "" {
			return "", false
		}
		return r.titles.Lookup(candidate)
	}

	candidate, err := r.matcher.Match(ctx, title, r.titles.Titles())
	if err != nil {
		r.log.Debugf("subject matcher found nothing for %q: %v", title, err)
		r.matched[title] = ""
		return "", false
	}

	id, ok := r.titles.Lookup(candidate)
	if !ok {
		r.log.Warnf("subject matcher answered %q for %q, which is not a mapped title", candidate, title)
		r.matched[title] = ""
		return "", false
	}

	r.log.Infof("matched unmapped title %q to %q", title, candidate)
	r.matched[title] = candidate
	return id, true
}
