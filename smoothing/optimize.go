package smoothing

import (
	"strings"
)

var labelRules = []struct {
	keyword string
	label   string
}{
	{"load", "lazy loading"},
	{"compile", "parallel compilation"},
	{"query", "indexing"},
	{"api", "response caching"},
	{"render", "template optimization"},
}

// OptimizationLabel names the optimization that fits a step. The first
// matching keyword decides.
func OptimizationLabel(step string) string {
	name := strings.ToLower(step)
	for _, r := range labelRules {
		if strings.Contains(name, r.keyword) {
			return r.label
		}
	}

	return "general optimization"
}
