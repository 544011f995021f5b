// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"strings"
	"testing"

	"github.com/woozymasta/pathrules"
)

// includeRules builds include rules from raw patterns for concise test setup.
func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

func TestNewIncludeMatcher_EmptyRulesMatchAll(t *testing.T) {
	t.Parallel()

	matcher, err := newIncludeMatcher(includeRules("", "  "), defaultIncludeMatcherOptions(pathrules.MatcherOptions{}))
	if err != nil {
		t.Fatalf("newIncludeMatcher: %v", err)
	}
	if matcher != nil {
		t.Fatal("matcher != nil for empty rule set")
	}
	if !matcher.Match("anything.xml") {
		t.Fatal("nil matcher rejected path")
	}
}

func TestIncludeMatcher_Match(t *testing.T) {
	t.Parallel()

	rules := []pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: "levels/**"},
		{Action: pathrules.ActionExclude, Pattern: "levels/tmp/**"},
		{Action: pathrules.ActionInclude, Pattern: `.\*.csv`},
	}

	matcher, err := newIncludeMatcher(rules, defaultIncludeMatcherOptions(pathrules.MatcherOptions{}))
	if err != nil {
		t.Fatalf("newIncludeMatcher: %v", err)
	}

	testCases := []struct {
		path string
		want bool
	}{
		{path: "levels/Level01.xml", want: true},
		{path: `LEVELS\Level02.xml`, want: true},
		{path: "levels/tmp/scratch.xml", want: false},
		{path: "Items.csv", want: true},
		{path: "Items.xml", want: false},
		{path: "", want: false},
	}

	for _, tc := range testCases {
		if got := matcher.Match(tc.path); got != tc.want {
			t.Fatalf("Match(%q)=%v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDefaultIncludeMatcherOptions(t *testing.T) {
	t.Parallel()

	got := defaultIncludeMatcherOptions(pathrules.MatcherOptions{})
	if !got.CaseInsensitive || got.DefaultAction != pathrules.ActionExclude {
		t.Fatalf("defaults=%+v, want case-insensitive exclude", got)
	}

	got = defaultIncludeMatcherOptions(pathrules.MatcherOptions{CaseInsensitive: false, DefaultAction: pathrules.ActionInclude})
	if got.DefaultAction != pathrules.ActionInclude {
		t.Fatalf("DefaultAction=%v, want include", got.DefaultAction)
	}
}
