package model

import (
	"encoding/json"
	"testing"
)

func TestParseFilterType(t *testing.T) {
	tests := []struct {
		input string
		want  FilterType
	}{
		{"block", FilterTypeBlock},
		{"allow", FilterTypeAllow},
		{"", FilterTypeOther},
		{"BLOCK", FilterTypeOther},
		{"deny", FilterTypeOther},
	}
	for _, tt := range tests {
		if got := ParseFilterType(tt.input); got != tt.want {
			t.Errorf("ParseFilterType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFilterMode(t *testing.T) {
	tests := []struct {
		input string
		want  FilterMode
	}{
		{"or", FilterModeOr},
		{"and", FilterModeAnd},
		{"OR", FilterModeOr},
		{"And", FilterModeAnd},
		{"", FilterModeOther},
		{"xor", FilterModeOther},
	}
	for _, tt := range tests {
		if got := ParseFilterMode(tt.input); got != tt.want {
			t.Errorf("ParseFilterMode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseRuleOp(t *testing.T) {
	tests := []struct {
		input string
		want  RuleOp
	}{
		{"contains", RuleOpContains},
		{"xpath", RuleOpXPath},
		{"Contains", RuleOpOther},
		{"regex", RuleOpOther},
		{"", RuleOpOther},
	}
	for _, tt := range tests {
		if got := ParseRuleOp(tt.input); got != tt.want {
			t.Errorf("ParseRuleOp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFilterStrings(t *testing.T) {
	if FilterTypeBlock.String() != "block" || FilterTypeAllow.String() != "allow" || FilterTypeOther.String() != "other" {
		t.Error("FilterType.String() mismatch")
	}
	if FilterModeOr.String() != "or" || FilterModeAnd.String() != "and" || FilterModeOther.String() != "other" {
		t.Error("FilterMode.String() mismatch")
	}
	if RuleOpContains.String() != "contains" || RuleOpXPath.String() != "xpath" || RuleOpOther.String() != "other" {
		t.Error("RuleOp.String() mismatch")
	}
}

func TestFilterUnmarshalJSON(t *testing.T) {
	spec := `{
		"type": "block",
		"mode": "OR",
		"rules": [
			{"op": "contains", "field": "title", "value": "sponsored"},
			{"op": "regex", "field": "link", "value": ".*"}
		]
	}`

	var filter Filter
	if err := json.Unmarshal([]byte(spec), &filter); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if filter.Type != FilterTypeBlock {
		t.Errorf("Type = %v, want FilterTypeBlock", filter.Type)
	}
	if filter.Mode != FilterModeOr {
		t.Errorf("Mode = %v, want FilterModeOr", filter.Mode)
	}
	if filter.RawMode != "or" {
		t.Errorf("RawMode = %q, want canonical lowercase", filter.RawMode)
	}
	if len(filter.Rules) != 2 {
		t.Fatalf("Rules count = %d, want 2", len(filter.Rules))
	}
	if filter.Rules[0].Op != RuleOpContains || filter.Rules[0].Field != "title" || filter.Rules[0].Value != "sponsored" {
		t.Errorf("Rules[0] = %+v, not decoded correctly", filter.Rules[0])
	}
	if filter.Rules[1].Op != RuleOpOther {
		t.Errorf("unknown op should parse to RuleOpOther, got %v", filter.Rules[1].Op)
	}
	if filter.Rules[1].RawOp != "regex" {
		t.Errorf("RawOp = %q, want original spec string", filter.Rules[1].RawOp)
	}
}

func TestFilterUnknownTypePreserved(t *testing.T) {
	var filter Filter
	if err := json.Unmarshal([]byte(`{"type": "dedupe", "mode": "and"}`), &filter); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if filter.Type != FilterTypeOther {
		t.Errorf("Type = %v, want FilterTypeOther", filter.Type)
	}
	if filter.RawType != "dedupe" {
		t.Errorf("RawType = %q, want original spec string", filter.RawType)
	}
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	original := `{"type":"allow","mode":"and","rules":[{"op":"xpath","field":"content","value":"//img"}]}`

	var filter Filter
	if err := json.Unmarshal([]byte(original), &filter); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	data, err := json.Marshal(&filter)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var reparsed Filter
	if err := json.Unmarshal(data, &reparsed); err != nil {
		t.Fatalf("Unmarshal(round trip) error = %v", err)
	}
	if reparsed.Type != filter.Type || reparsed.Mode != filter.Mode || len(reparsed.Rules) != len(filter.Rules) {
		t.Errorf("round trip changed the filter: %+v vs %+v", reparsed, filter)
	}
	if reparsed.Rules[0].Op != RuleOpXPath {
		t.Errorf("round trip lost the rule op: %+v", reparsed.Rules[0])
	}
}
