package cli

import (
	"testing"

	"github.com/dpshade/pocket-doc/internal/models"
)

func TestParseFlag(t *testing.T) {
	args := []string{"list", "--format", "json", "-a"}

	if got := parseFlag(args, "--format", "-f"); got != "json" {
		t.Errorf("Expected 'json', got %q", got)
	}
	if got := parseFlag(args, "--title"); got != "" {
		t.Errorf("Expected empty value for absent flag, got %q", got)
	}
	if !hasFlag(args, "--archived", "-a") {
		t.Error("Expected -a to be detected")
	}
	if hasFlag(args, "--copy", "-c") {
		t.Error("Did not expect --copy to be detected")
	}
}

func TestParseFlagAtEndOfArgs(t *testing.T) {
	// A flag with no value following it yields nothing
	if got := parseFlag([]string{"list", "--format"}, "--format"); got != "" {
		t.Errorf("Expected empty value for trailing flag, got %q", got)
	}
}

func TestParseSlotSpec(t *testing.T) {
	tests := []struct {
		spec     string
		name     string
		slotType models.SlotType
		required bool
		wantErr  bool
	}{
		{"client", "client", models.SlotString, true, false},
		{"amount:number", "amount", models.SlotNumber, true, false},
		{"approved:boolean", "approved", models.SlotBoolean, true, false},
		{"cc:list_of_string:optional", "cc", models.SlotStringList, false, false},
		{"notes::optional", "notes", models.SlotString, false, false},
		{":number", "", "", false, true},
		{"x:integer", "", "", false, true},
		{"x:string:maybe", "", "", false, true},
	}

	for _, tt := range tests {
		slot, err := parseSlotSpec(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSlotSpec(%q): expected error", tt.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSlotSpec(%q): unexpected error: %v", tt.spec, err)
			continue
		}
		if slot.Name != tt.name || slot.Type != tt.slotType || slot.Required != tt.required {
			t.Errorf("parseSlotSpec(%q) = %+v, want name=%s type=%s required=%v",
				tt.spec, slot, tt.name, tt.slotType, tt.required)
		}
	}
}

func TestSortedFieldNames(t *testing.T) {
	fields := map[string]any{"zeta": 1, "alpha": 2, "middle": 3}

	names := sortedFieldNames(fields)
	want := []string{"alpha", "middle", "zeta"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Expected names[%d]=%s, got %s", i, name, names[i])
		}
	}
}
