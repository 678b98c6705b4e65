// Package metadata classifies profile names into the color and icon the
// browser extension uses for its container tabs.
package metadata

import (
	"hash/fnv"
	"strings"
)

// Firefox container palette. The fallback hash picks from this list, so its
// order is part of the classification contract: reordering it would repaint
// existing containers.
var palette = []string{
	"blue", "turquoise", "green", "yellow",
	"orange", "red", "pink", "purple",
}

const defaultIcon = "circle"

// Rule matches profile names containing any of its keywords,
// case-insensitive. First matching rule wins.
type Rule struct {
	Keywords []string
	Color    string
	Icon     string
}

// Matches reports whether name contains any of the rule's keywords.
func (r Rule) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range r.Keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in classification rules.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"prod", "production"}, Color: "red", Icon: "briefcase"},
		{Keywords: []string{"stg", "staging", "stage"}, Color: "yellow", Icon: "circle"},
		{Keywords: []string{"dev", "development"}, Color: "green", Icon: "fingerprint"},
		{Keywords: []string{"test", "qa"}, Color: "turquoise", Icon: "circle"},
		{Keywords: []string{"int", "integration"}, Color: "blue", Icon: "circle"},
	}
}

// Engine evaluates an ordered rule list with a deterministic hash fallback.
// Classification is pure: the same name yields the same result across runs
// and processes.
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine evaluating custom rules before the defaults.
func NewEngine(custom []Rule) *Engine {
	rules := make([]Rule, 0, len(custom)+5)
	for _, rule := range custom {
		if rule.Color == "" {
			rule.Color = "purple"
		}
		if rule.Icon == "" {
			rule.Icon = defaultIcon
		}
		lowered := make([]string, len(rule.Keywords))
		for i, k := range rule.Keywords {
			lowered[i] = strings.ToLower(k)
		}
		rule.Keywords = lowered
		rules = append(rules, rule)
	}
	rules = append(rules, DefaultRules()...)
	return &Engine{rules: rules}
}

// Classify returns the color and icon for a profile name.
func (e *Engine) Classify(name string) (color, icon string) {
	for _, rule := range e.rules {
		if rule.Matches(name) {
			return rule.Color, rule.Icon
		}
	}
	return fallbackColor(name), defaultIcon
}

// fallbackColor hashes the name onto the palette. FNV-1a is stable across
// architectures and Go releases.
func fallbackColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	return palette[h.Sum32()%uint32(len(palette))]
}
