package models

import (
	"encoding/json"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewTemplateRejectsDuplicateSlots(t *testing.T) {
	_, err := NewTemplate("dup", "Duplicate", "1", []Slot{
		{Name: "client", Type: SlotString},
		{Name: "client", Type: SlotNumber},
	})
	if err == nil {
		t.Fatal("Expected duplicate slot names to fail construction")
	}
}

func TestNewTemplateRejectsEmptySlotName(t *testing.T) {
	_, err := NewTemplate("empty-name", "Empty", "1", []Slot{
		{Name: "", Type: SlotString},
	})
	if err == nil {
		t.Fatal("Expected empty slot name to fail construction")
	}
}

func TestNewTemplateRejectsEmptyID(t *testing.T) {
	_, err := NewTemplate("", "No ID", "1", nil)
	if err == nil {
		t.Fatal("Expected empty template id to fail construction")
	}
}

func TestRequiredSlotsPreservesOrder(t *testing.T) {
	tmpl, err := NewTemplate("memo", "Memo", "1", []Slot{
		{Name: "to", Required: true, Type: SlotString},
		{Name: "cc", Required: false, Type: SlotStringList},
		{Name: "subject", Required: true, Type: SlotString},
		{Name: "body", Required: true, Type: SlotString},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"to", "subject", "body"}
	if got := tmpl.RequiredSlots(); !reflect.DeepEqual(got, want) {
		t.Errorf("RequiredSlots() = %v, want %v", got, want)
	}

	if len(tmpl.RequiredSlots()) > len(tmpl.Slots) {
		t.Error("Required slots cannot outnumber declared slots")
	}
}

func TestSlotMapRoundTrip(t *testing.T) {
	tmpl, err := NewTemplate("memo", "Memo", "1", []Slot{
		{Name: "to", Required: true, Type: SlotString},
		{Name: "cc", Required: false, Type: SlotStringList},
	})
	if err != nil {
		t.Fatal(err)
	}

	slotMap := tmpl.SlotMap()
	if len(slotMap) != len(tmpl.Slots) {
		t.Fatalf("SlotMap has %d entries, want %d", len(slotMap), len(tmpl.Slots))
	}
	for _, name := range tmpl.RequiredSlots() {
		slot, ok := slotMap[name]
		if !ok {
			t.Fatalf("Required slot '%s' missing from SlotMap", name)
		}
		if slot.Name != name {
			t.Errorf("SlotMap[%q].Name = %q", name, slot.Name)
		}
		if !slot.Required {
			t.Errorf("Slot '%s' from RequiredSlots must be required in SlotMap", name)
		}
	}
}

func TestSlotYAMLDefaults(t *testing.T) {
	var slot Slot
	if err := yaml.Unmarshal([]byte("name: client\n"), &slot); err != nil {
		t.Fatal(err)
	}
	if !slot.Required {
		t.Error("Slots should default to required")
	}
	if slot.Type != SlotString {
		t.Errorf("Slots should default to string type, got '%s'", slot.Type)
	}

	if err := yaml.Unmarshal([]byte("name: cc\nrequired: false\ntype: list_of_string\n"), &slot); err != nil {
		t.Fatal(err)
	}
	if slot.Required {
		t.Error("Explicit required: false should survive decoding")
	}
	if slot.Type != SlotStringList {
		t.Errorf("Expected list_of_string, got '%s'", slot.Type)
	}
}

func TestSlotJSONDefaults(t *testing.T) {
	var slot Slot
	if err := json.Unmarshal([]byte(`{"name": "client"}`), &slot); err != nil {
		t.Fatal(err)
	}
	if !slot.Required {
		t.Error("Slots decoded from JSON should default to required")
	}
	if slot.Type != SlotString {
		t.Errorf("Slots decoded from JSON should default to string type, got '%s'", slot.Type)
	}

	if err := json.Unmarshal([]byte(`{"name": "cc", "required": false, "type": "list_of_string"}`), &slot); err != nil {
		t.Fatal(err)
	}
	if slot.Required {
		t.Error("Explicit required: false should survive JSON decoding")
	}
	if slot.Type != SlotStringList {
		t.Errorf("Expected list_of_string, got '%s'", slot.Type)
	}
}

func TestNewTemplateRejectsUnknownSlotType(t *testing.T) {
	_, err := NewTemplate("bad-type", "Bad Type", "1", []Slot{
		{Name: "count", Required: true, Type: "integer"},
	})
	if err == nil {
		t.Fatal("Expected unknown slot type to fail construction")
	}

	_, err = NewTemplate("no-type", "No Type", "1", []Slot{
		{Name: "count", Required: true},
	})
	if err == nil {
		t.Fatal("Expected zero-value slot type to fail construction")
	}
}

func TestTemplateTouch(t *testing.T) {
	tmpl, err := NewTemplate("memo", "Memo", "1", nil)
	if err != nil {
		t.Fatal(err)
	}
	created := tmpl.Meta.CreatedAt
	before := tmpl.Meta.UpdatedAt

	tmpl.Touch()

	if tmpl.Meta.UpdatedAt.Before(before) {
		t.Error("Touch must never move UpdatedAt backwards")
	}
	if tmpl.Meta.CreatedAt != created {
		t.Error("Touch must not change CreatedAt")
	}
}
