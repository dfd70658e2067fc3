package validate

import "regexp"

// DangerousPattern is one named detector in the injection rule set. Keeping
// the rules as an explicit list means a new bypass gets a new entry and a
// test, not a bigger regex nobody can read.
type DangerousPattern struct {
	Name    string
	pattern *regexp.Regexp
}

func (p DangerousPattern) Matches(s string) bool {
	return p.pattern.MatchString(s)
}

// dangerousPatterns covers path traversal and script injection. All matching
// is case-insensitive.
var dangerousPatterns = []DangerousPattern{
	{Name: "path_traversal_parent", pattern: regexp.MustCompile(`\.\.`)},
	{Name: "path_traversal_current", pattern: regexp.MustCompile(`\./`)},
	{Name: "path_traversal_hidden", pattern: regexp.MustCompile(`/\.`)},
	{Name: "script_scheme", pattern: regexp.MustCompile(`(?i)javascript:`)},
	{Name: "event_handler", pattern: regexp.MustCompile(`(?i)on\w+\s*=`)},
	{Name: "script_tag_open", pattern: regexp.MustCompile(`(?i)<script`)},
	{Name: "script_tag_close", pattern: regexp.MustCompile(`(?i)</script`)},
	{Name: "eval_call", pattern: regexp.MustCompile(`(?i)eval\(`)},
	{Name: "css_expression", pattern: regexp.MustCompile(`(?i)expression\(`)},
}

// MatchDangerous returns the first matching rule name, or "" when clean.
func MatchDangerous(s string) string {
	for _, p := range dangerousPatterns {
		if p.Matches(s) {
			return p.Name
		}
	}
	return ""
}

// ContainsDangerous reports whether any injection rule matches.
func ContainsDangerous(s string) bool {
	return MatchDangerous(s) != ""
}
