// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/swz

package swz

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// includeMatcher holds compiled include rules for pack inputs and extracted names.
type includeMatcher struct {
	matcher *pathrules.Matcher
}

// newIncludeMatcher compiles include rules; nil matcher means include everything.
func newIncludeMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*includeMatcher, error) {
	rules = normalizeIncludeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidIncludePattern, err)
	}

	return &includeMatcher{matcher: matcher}, nil
}

// normalizeIncludeRules normalizes rule patterns and drops empty patterns.
func normalizeIncludeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path passes include rules.
func (m *includeMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}
