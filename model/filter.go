package model

import (
	"encoding/json"
	"strings"
)

// FilterType selects the filtering behavior of a Filter. Unknown types
// parse to FilterTypeOther, which passes every entry through unchanged.
type FilterType uint8

const (
	FilterTypeOther FilterType = iota
	FilterTypeBlock
	FilterTypeAllow
)

// ParseFilterType converts a spec string to a FilterType. Unknown values
// degrade to FilterTypeOther rather than failing the spec load.
func ParseFilterType(filterType string) FilterType {
	switch filterType {
	case "block":
		return FilterTypeBlock
	case "allow":
		return FilterTypeAllow
	default:
		return FilterTypeOther
	}
}

// String returns the string representation of a FilterType
func (t FilterType) String() string {
	switch t {
	case FilterTypeBlock:
		return "block"
	case FilterTypeAllow:
		return "allow"
	default:
		return "other"
	}
}

// FilterMode combines the results of a filter's rules. Matching is
// case-insensitive on input; anything other than or/and parses to
// FilterModeOther, which yields an empty result when applied.
type FilterMode uint8

const (
	FilterModeOther FilterMode = iota
	FilterModeOr
	FilterModeAnd
)

// ParseFilterMode converts a spec string to a FilterMode
func ParseFilterMode(mode string) FilterMode {
	switch strings.ToLower(mode) {
	case "or":
		return FilterModeOr
	case "and":
		return FilterModeAnd
	default:
		return FilterModeOther
	}
}

// String returns the string representation of a FilterMode
func (m FilterMode) String() string {
	switch m {
	case FilterModeOr:
		return "or"
	case FilterModeAnd:
		return "and"
	default:
		return "other"
	}
}

// RuleOp selects the matching operator of a Rule. Unknown ops parse to
// RuleOpOther, which never matches.
type RuleOp uint8

const (
	RuleOpOther RuleOp = iota
	RuleOpContains
	RuleOpXPath
)

// ParseRuleOp converts a spec string to a RuleOp
func ParseRuleOp(op string) RuleOp {
	switch op {
	case "contains":
		return RuleOpContains
	case "xpath":
		return RuleOpXPath
	default:
		return RuleOpOther
	}
}

// String returns the string representation of a RuleOp
func (o RuleOp) String() string {
	switch o {
	case RuleOpContains:
		return "contains"
	case RuleOpXPath:
		return "xpath"
	default:
		return "other"
	}
}

// Rule matches a single entry field. For contains the value is a
// case-sensitive substring; for xpath it is an XPath expression evaluated
// against the field parsed as markup. RawOp preserves the spec string for
// diagnostics when the op is unknown.
type Rule struct {
	Op    RuleOp `json:"-"`
	RawOp string `json:"op"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// UnmarshalJSON decodes a rule definition, resolving the op variant
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op    string `json:"op"`
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.RawOp = raw.Op
	r.Op = ParseRuleOp(raw.Op)
	r.Field = raw.Field
	r.Value = raw.Value
	return nil
}

// Filter is an ordered set of rules combined by Mode and interpreted by
// Type. RawType/RawMode preserve the spec strings (mode canonicalized to
// lowercase) for diagnostics.
type Filter struct {
	Type    FilterType `json:"-"`
	RawType string     `json:"type"`
	Mode    FilterMode `json:"-"`
	RawMode string     `json:"mode"`
	Rules   []Rule     `json:"rules"`
}

// UnmarshalJSON decodes a filter definition, resolving the type and mode
// variants
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string `json:"type"`
		Mode  string `json:"mode"`
		Rules []Rule `json:"rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.RawType = raw.Type
	f.Type = ParseFilterType(raw.Type)
	f.RawMode = strings.ToLower(raw.Mode)
	f.Mode = ParseFilterMode(raw.Mode)
	f.Rules = raw.Rules
	return nil
}
