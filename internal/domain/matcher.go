package domain

import (
	"fmt"
	"regexp"
)

// FindRule returns the first rule, in list order, that matches the request.
// A default rule always matches. A rule with neither a condition nor the
// default flag never matches. The second return value is false when nothing
// matches, which callers must treat as a configuration error.
func FindRule(bc *BillingContext, rules []*BillingRule) (*BillingRule, bool) {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if rule.Default {
			return rule, true
		}
		if rule.When != nil && rule.When.Matches(bc) {
			return rule, true
		}
	}
	return nil, false
}

// Matches reports whether every present predicate holds for the request.
func (c *BillingCondition) Matches(bc *BillingContext) bool {
	if c.Path != "" && bc.Meta.Path != c.Path {
		return false
	}

	if c.PathRegex != "" {
		// Compiled per call; rule sets are small and rules are immutable.
		re, err := regexp.Compile(c.PathRegex)
		if err != nil || !re.MatchString(bc.Meta.Path) {
			return false
		}
	}

	if c.Method != "" && bc.Meta.Method != c.Method {
		return false
	}

	if c.AssetID != "" && bc.AssetID != c.AssetID {
		return false
	}

	if c.Model != "" && bc.Meta.Model != c.Model {
		return false
	}

	for key, want := range c.Extra {
		got, ok := bc.Lookup(key)
		if !ok || got != fmt.Sprint(want) {
			return false
		}
	}

	return true
}
