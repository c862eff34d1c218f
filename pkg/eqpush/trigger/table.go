package trigger

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
)

// Fingerprint is a content hash of an ordered definition list.
type Fingerprint uint64

// String returns the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Compute returns the fingerprint of defs. Every field is length-prefixed,
// so any change to a name, a pattern, membership or order changes the result.
func Compute(defs []Definition) Fingerprint {
	h := fnv.New64a()
	var n [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		io.WriteString(h, s)
	}

	binary.LittleEndian.PutUint64(n[:], uint64(len(defs)))
	h.Write(n[:])
	for _, d := range defs {
		writeString(d.Name)
		writeString(d.Pattern)
	}
	return Fingerprint(h.Sum64())
}

// Rule is a compiled trigger. Rules are immutable.
type Rule struct {
	Name    string
	Pattern string

	regex *regexp.Regexp
	names []string // SubexpNames, index 0 is the whole match
}

// Match is a successful rule match.
type Match struct {
	// Rule is the name of the matching trigger.
	Rule string `json:"rule"`

	// Groups holds the named groups that took part in the match.
	// Nil when the pattern has no named groups.
	Groups map[string]string `json:"groups,omitempty"`
}

// Group returns a named capture and whether it participated in the match.
func (m Match) Group(name string) (string, bool) {
	v, ok := m.Groups[name]
	return v, ok
}

// Source returns the "source" capture, if any.
func (m Match) Source() (string, bool) {
	return m.Group("source")
}

// Match reports whether text matches the rule.
func (r *Rule) Match(text string) (Match, bool) {
	loc := r.regex.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}

	m := Match{Rule: r.Name}
	for i := 1; i < len(r.names); i++ {
		if r.names[i] == "" || loc[2*i] < 0 {
			continue
		}
		if m.Groups == nil {
			m.Groups = make(map[string]string, len(r.names)-1)
		}
		m.Groups[r.names[i]] = text[loc[2*i]:loc[2*i+1]]
	}
	return m, true
}

// RuleSet is an immutable compiled list of rules.
type RuleSet struct {
	fingerprint Fingerprint
	rules       []*Rule
	warnings    []error
}

// Compile builds a RuleSet from defs. Definitions that cannot be compiled
// are skipped and reported through Warnings.
func Compile(defs []Definition) *RuleSet {
	rs := &RuleSet{
		fingerprint: Compute(defs),
		rules:       make([]*Rule, 0, len(defs)),
	}

	for i, d := range defs {
		if i >= MaxRuleCount {
			rs.warnings = append(rs.warnings, &PatternError{
				Index:   i,
				Name:    d.Name,
				Field:   "triggers",
				Message: fmt.Sprintf("too many triggers, only the first %d are used", MaxRuleCount),
			})
			break
		}
		r, err := compileRule(i, d)
		if err != nil {
			rs.warnings = append(rs.warnings, err)
			continue
		}
		rs.rules = append(rs.rules, r)
	}
	return rs
}

func compileRule(i int, d Definition) (*Rule, error) {
	if d.Name == "" {
		return nil, &PatternError{Index: i, Field: "name", Message: "name is required"}
	}
	if d.Pattern == "" {
		return nil, &PatternError{Index: i, Name: d.Name, Field: "pattern", Message: "pattern is required"}
	}
	if len(d.Pattern) > MaxPatternLength {
		return nil, &PatternError{
			Index:   i,
			Name:    d.Name,
			Field:   "pattern",
			Message: fmt.Sprintf("pattern too long: %d bytes (max %d)", len(d.Pattern), MaxPatternLength),
		}
	}

	// Compile the raw source first so the anchoring wrapper cannot turn an
	// unbalanced pattern into a valid one.
	if _, err := regexp.Compile(d.Pattern); err != nil {
		return nil, &PatternError{
			Index:   i,
			Name:    d.Name,
			Field:   "pattern",
			Message: fmt.Sprintf("invalid regular expression: %v", err),
			Cause:   err,
		}
	}
	re := regexp.MustCompile(`^(?:` + d.Pattern + `)`)

	return &Rule{
		Name:    d.Name,
		Pattern: d.Pattern,
		regex:   re,
		names:   re.SubexpNames(),
	}, nil
}

// Fingerprint returns the fingerprint of the definitions the set was built from.
func (rs *RuleSet) Fingerprint() Fingerprint { return rs.fingerprint }

// Len returns the number of usable rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rules returns the compiled rules in declaration order.
func (rs *RuleSet) Rules() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Warnings returns the errors for definitions that were skipped.
func (rs *RuleSet) Warnings() []error {
	out := make([]error, len(rs.warnings))
	copy(out, rs.warnings)
	return out
}

// Match tries each rule in order and returns the first match.
func (rs *RuleSet) Match(text string) (Match, bool) {
	for _, r := range rs.rules {
		if m, ok := r.Match(text); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Table caches the RuleSet for the live definition list and rebuilds it
// only when the fingerprint changes. It is safe for concurrent use;
// lookups never take a lock unless a rebuild is needed.
type Table struct {
	log     *slog.Logger
	mu      sync.Mutex // serializes rebuilds
	current atomic.Pointer[RuleSet]
	builds  atomic.Int64
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithLogger sets the logger used to report skipped definitions.
func WithLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.log = logger
		}
	}
}

// NewTable returns an empty Table; the first Rules call builds it.
func NewTable(opts ...TableOption) *Table {
	t := &Table{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Rules returns the RuleSet for defs, compiling it if defs differ from the
// last build. Skipped definitions are logged once per build.
func (t *Table) Rules(defs []Definition) *RuleSet {
	fp := Compute(defs)
	if rs := t.current.Load(); rs != nil && rs.fingerprint == fp {
		return rs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if rs := t.current.Load(); rs != nil && rs.fingerprint == fp {
		return rs
	}

	rs := Compile(defs)
	for _, w := range rs.warnings {
		t.log.Warn("skipping trigger", "err", w)
	}
	t.log.Debug("trigger table rebuilt", "rules", rs.Len(), "skipped", len(rs.warnings), "fingerprint", fp.String())

	t.current.Store(rs)
	t.builds.Add(1)
	return rs
}

// Match looks up the RuleSet for defs and matches text against it.
func (t *Table) Match(defs []Definition, text string) (Match, bool) {
	return t.Rules(defs).Match(text)
}

// Current returns the last built RuleSet, or nil before the first build.
func (t *Table) Current() *RuleSet {
	return t.current.Load()
}

// Builds returns how many times the table has been rebuilt.
func (t *Table) Builds() int64 {
	return t.builds.Load()
}
