// Package trigger compiles named regular expression rules and matches
// EverQuest log text against them.
//
// Definitions come from the push configuration as an ordered list.
// Named capture groups (?P<name>...) are exposed on the Match; the
// notification policy looks at "source" to avoid notifying players
// about their own actions. Patterns are anchored at the start of the
// text.
//
// Definitions may be written in YAML either as mappings or as pairs:
//
//	triggers:
//	  - name: Slain
//	    pattern: '^(?P<target>[\w\s]+?) (?:have|has) been slain by (?P<source>.*)\.'
//	  - ["You died", '^You died\.']
package trigger

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// MaxPatternLength bounds a single pattern to keep compile and match cost predictable.
	MaxPatternLength = 512

	// MaxRuleCount bounds the number of rules compiled into one RuleSet.
	MaxRuleCount = 1000
)

// Definition is one configured trigger.
type Definition struct {
	// Name is the notification event title used when the rule matches.
	Name string `yaml:"name" json:"name"`

	// Pattern is the regular expression source.
	Pattern string `yaml:"pattern" json:"pattern"`
}

// UnmarshalYAML accepts a {name, pattern} mapping or a [name, pattern] sequence.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: trigger pair must have 2 elements, got %d", node.Line, len(node.Content))
		}
		var name, pattern string
		if err := node.Content[0].Decode(&name); err != nil {
			return fmt.Errorf("line %d: trigger name: %w", node.Line, err)
		}
		if err := node.Content[1].Decode(&pattern); err != nil {
			return fmt.Errorf("line %d: trigger pattern: %w", node.Line, err)
		}
		*d = Definition{Name: name, Pattern: pattern}
		return nil
	case yaml.MappingNode:
		type plain Definition
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*d = Definition(p)
		return nil
	default:
		return fmt.Errorf("line %d: trigger must be a mapping or a [name, pattern] pair", node.Line)
	}
}
