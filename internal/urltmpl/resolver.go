package urltmpl

import (
	"log/slog"
	"regexp"

	"github.com/connstorm/connstorm/internal/model"
)

// tokenPattern matches @{name} template tokens.
var tokenPattern = regexp.MustCompile(`@\{([A-Za-z0-9_.-]+)\}`)

// Resolver substitutes @{name} tokens in a URL template from a data row.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve replaces every token found in the row with its value. Tokens with
// no matching key (or a nil row) pass through verbatim; resolution never
// fails.
func (r *Resolver) Resolve(template string, row model.DataRow) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[2 : len(token)-1]
		if row != nil {
			if val, ok := row[name]; ok {
				return val
			}
		}
		r.logger.Warn("unresolved template token", "token", name)
		return token
	})
}

// Tokens returns the variable names referenced by a template, in order of
// first appearance.
func Tokens(template string) []string {
	matches := tokenPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
