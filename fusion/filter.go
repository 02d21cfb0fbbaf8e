package fusion

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"

	"github.com/feedfuser/feedfuser/model"
)

// ApplyFilters runs a source's filter chain over its normalized entries.
// Filters apply sequentially: the output of one is the input of the next,
// so a block followed by an allow narrows twice.
func ApplyFilters(entries []*model.Entry, filters []model.Filter) []*model.Entry {
	for _, filter := range filters {
		entries = applyFilter(entries, filter)
	}
	return entries
}

// applyFilter evaluates one filter. Unknown filter types pass every entry
// through unchanged; a known type whose mode is neither or nor and keeps
// nothing.
func applyFilter(entries []*model.Entry, filter model.Filter) []*model.Entry {
	if filter.Type == model.FilterTypeOther {
		return entries
	}
	if filter.Mode != model.FilterModeOr && filter.Mode != model.FilterModeAnd {
		return []*model.Entry{}
	}

	rules := compileRules(filter.Rules)

	kept := make([]*model.Entry, 0, len(entries))
	for _, entry := range entries {
		matched := evalRules(entry, rules, filter.Mode)
		if filter.Type == model.FilterTypeBlock {
			matched = !matched
		}
		if matched {
			kept = append(kept, entry)
		}
	}
	return kept
}

// compiledRule pairs a rule with its compiled XPath expression. A rule
// whose expression fails to compile keeps a nil expr and evaluates to
// false instead of failing the whole chain.
type compiledRule struct {
	rule model.Rule
	expr *xpath.Expr
}

func compileRules(rules []model.Rule) []compiledRule {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{rule: rule}
		if rule.Op == model.RuleOpXPath {
			if expr, err := xpath.Compile(rule.Value); err == nil {
				cr.expr = expr
			} else {
				model.WarnLog("ignoring uncompilable xpath rule: "+rule.Value, err)
			}
		}
		compiled = append(compiled, cr)
	}
	return compiled
}

// evalRules combines rule outcomes under the filter mode. or over no rules
// is false, and over no rules is true, matching the usual any/all
// semantics.
func evalRules(entry *model.Entry, rules []compiledRule, mode model.FilterMode) bool {
	if mode == model.FilterModeAnd {
		for _, rule := range rules {
			if !rule.eval(entry) {
				return false
			}
		}
		return true
	}

	for _, rule := range rules {
		if rule.eval(entry) {
			return true
		}
	}
	return false
}

// eval reports whether the rule matches the entry. Degraded inputs
// (unknown op, unknown field, empty field value, unparseable markup)
// evaluate to false.
func (c compiledRule) eval(entry *model.Entry) bool {
	value, ok := entry.Field(c.rule.Field)
	if !ok || value == "" {
		return false
	}

	switch c.rule.Op {
	case model.RuleOpContains:
		return strings.Contains(value, c.rule.Value)
	case model.RuleOpXPath:
		if c.expr == nil {
			return false
		}
		doc, err := htmlquery.Parse(strings.NewReader(value))
		if err != nil {
			return false
		}
		return len(htmlquery.QuerySelectorAll(doc, c.expr)) > 0
	default:
		return false
	}
}
