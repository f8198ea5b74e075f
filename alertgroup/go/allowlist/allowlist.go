// Package allowlist decides which (subscription, benchmark, bot) combinations
// may run sandwich verification.
package allowlist

// Wildcard matches any value.
const Wildcard = "*"

// Checker reports whether a combination is allowed.
type Checker interface {
	Check(subscription, benchmark, bot string) bool
}

// Entry is one allowed combination. Empty fields and Wildcard match
// anything.
type Entry struct {
	Subscription string `json:"subscription,omitempty"`
	Benchmark    string `json:"benchmark,omitempty"`
	Bot          string `json:"bot,omitempty"`
}

func matches(pattern, value string) bool {
	return pattern == "" || pattern == Wildcard || pattern == value
}

func (e Entry) matches(subscription, benchmark, bot string) bool {
	return matches(e.Subscription, subscription) && matches(e.Benchmark, benchmark) && matches(e.Bot, bot)
}

// StaticChecker is a Checker over a fixed list of entries.
type StaticChecker struct {
	entries []Entry
}

// New returns a StaticChecker. With no entries nothing is allowed.
func New(entries []Entry) *StaticChecker {
	return &StaticChecker{entries: append([]Entry{}, entries...)}
}

// Check implements Checker.
func (s *StaticChecker) Check(subscription, benchmark, bot string) bool {
	for _, e := range s.entries {
		if e.matches(subscription, benchmark, bot) {
			return true
		}
	}
	return false
}

var _ Checker = (*StaticChecker)(nil)
