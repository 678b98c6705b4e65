package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_KeywordRules(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name  string
		color string
		icon  string
	}{
		{"prod-admin", "red", "briefcase"},
		{"PRODUCTION", "red", "briefcase"},
		{"staging-eu", "yellow", "circle"},
		{"stg-admin", "yellow", "circle"},
		{"stage-2", "yellow", "circle"},
		{"dev-sso", "green", "fingerprint"},
		{"qa-runner", "turquoise", "circle"},
		{"integration-x", "blue", "circle"},
	}

	for _, tt := range tests {
		color, icon := engine.Classify(tt.name)
		assert.Equal(t, tt.color, color, tt.name)
		assert.Equal(t, tt.icon, icon, tt.name)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	engine := NewEngine(nil)

	// Contains both "prod" and "dev"; "prod" comes first in the rule list.
	color, _ := engine.Classify("prod-devops")
	assert.Equal(t, "red", color)
}

func TestClassify_CustomRulesBeforeDefaults(t *testing.T) {
	engine := NewEngine([]Rule{
		{Keywords: []string{"Janus"}},
	})

	color, icon := engine.Classify("janus-prod")
	assert.Equal(t, "purple", color, "custom rule must shadow the prod rule")
	assert.Equal(t, "circle", icon)
}

func TestClassify_FallbackIsDeterministic(t *testing.T) {
	engine := NewEngine(nil)

	first, icon := engine.Classify("sandbox-xyz")
	assert.Equal(t, "circle", icon)
	assert.Contains(t, palette, first)

	// Repeated calls and fresh engines agree.
	for i := 0; i < 10; i++ {
		color, _ := NewEngine(nil).Classify("sandbox-xyz")
		assert.Equal(t, first, color)
	}
}

func TestClassify_FallbackSpreadsAcrossPalette(t *testing.T) {
	engine := NewEngine(nil)
	seen := map[string]bool{}
	for _, name := range []string{"aaa", "bbb", "ccc", "xyz", "foo", "bar", "alpha", "omega", "zed"} {
		color, _ := engine.Classify(name)
		seen[color] = true
	}
	assert.Greater(t, len(seen), 1, "hash fallback should use more than one palette entry")
}
