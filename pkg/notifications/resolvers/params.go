package resolvers

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// lookup reads key from the scope context first, then from the instance context.
func lookup(key string, scopeContext, instanceContext map[string]any) (any, error) {
	if v, ok := scopeContext[key]; ok {
		return v, nil
	}
	if v, ok := instanceContext[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingScopeParam, key)
}

func lookupAll(keys []string, scopeContext, instanceContext map[string]any) ([]any, error) {
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		v, err := lookup(key, scopeContext, instanceContext)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// expand fills {key} placeholders of tmpl.
func expand(tmpl string, scopeContext, instanceContext map[string]any) (string, error) {
	var missing error
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, err := lookup(key, scopeContext, instanceContext)
		if err != nil {
			if missing == nil {
				missing = err
			}
			return m
		}
		return fmt.Sprint(v)
	})
	return out, missing
}

// parseID returns s as int64, or s itself so the stream skips it with a warning.
func parseID(s string) any {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return id
}
