package types

import (
	"encoding/json"
	"testing"
)

func TestCodeRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want CodeRef
	}{
		{name: "bare string", in: `"PYRIOR"`, want: "PYRIOR"},
		{name: "nested object", in: `{"eppocode":"PUCCRT"}`, want: "PUCCRT"},
		{name: "object without code", in: `{"other":"x"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CodeRef
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCodeRef_UnmarshalJSON_Invalid(t *testing.T) {
	var got CodeRef
	if err := json.Unmarshal([]byte(`42`), &got); err == nil {
		t.Fatal("Unmarshal(42) error = nil, want error")
	}
}

func TestTaxonOverview_DecodesBothCodeForms(t *testing.T) {
	flat := `{"prefname":"Pyricularia oryzae","eppocode":"PYRIOR"}`
	nested := `{"prefname":"Pyricularia oryzae","eppocode":{"eppocode":"PYRIOR"}}`

	for _, in := range []string{flat, nested} {
		var ov TaxonOverview
		if err := json.Unmarshal([]byte(in), &ov); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", in, err)
		}
		if ov.EPPOCode.String() != "PYRIOR" {
			t.Fatalf("EPPOCode = %q, want PYRIOR", ov.EPPOCode)
		}
		if ov.PrefName != "Pyricularia oryzae" {
			t.Fatalf("PrefName = %q, want Pyricularia oryzae", ov.PrefName)
		}
	}
}

func TestFacts_HasOverview(t *testing.T) {
	if (Facts{}).HasOverview() {
		t.Error("empty Facts reports an overview")
	}
	f := Facts{Overview: &TaxonOverview{PrefName: "x"}}
	if !f.HasOverview() {
		t.Error("Facts with overview reports none")
	}
}
