// Package validation reconciles a document's field map against its
// template's slot contract.
//
// VALIDATION FLOW:
// 1. Each template slot is checked in declaration order: required slots that
//    are absent produce missing issues, present values are type-checked
// 2. Document fields not declared by the template produce warnings
// 3. The aggregated Result derives its validity from the issue lists
//
// The validator is a pure function: it never mutates the template or the
// document, performs no I/O, and is safe for concurrent use on independent
// inputs. Data-quality problems become issues in the Result; the only error
// return is a contract violation (document validated against the wrong
// template).
package validation

import (
	"fmt"
	"sort"

	apperrors "github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
)

// ValidateDocument checks doc's fields against tmpl's slot definitions and
// returns an aggregated report.
//
// A document that references a template id different from tmpl's is a caller
// error, not a data-quality problem, and is returned as an AppError.
// Template-less documents (empty TemplateID) validate against whatever
// template the caller supplies.
//
// A field present with an empty string or empty list counts as present; the
// type check still applies.
func ValidateDocument(tmpl *models.Template, doc *models.Document) (*models.Result, error) {
	if tmpl == nil {
		return nil, apperrors.InvalidCommandError("validate", "template is nil")
	}
	if doc == nil {
		return nil, apperrors.InvalidCommandError("validate", "document is nil")
	}
	if doc.TemplateID != "" && doc.TemplateID != tmpl.ID {
		return nil, apperrors.TemplateMismatchError(doc.TemplateID, tmpl.ID)
	}

	result := &models.Result{
		Missing:  []models.Issue{},
		Errors:   []models.Issue{},
		Warnings: []models.Issue{},
	}

	// Pass 1: template slots in declaration order
	for _, slot := range tmpl.Slots {
		value, present := doc.Fields[slot.Name]
		if !present {
			if slot.Required {
				result.Missing = append(result.Missing, models.Issue{
					FieldName: slot.Name,
					Message:   fmt.Sprintf("required slot '%s' is missing", slot.Name),
					Severity:  models.SeverityError,
				})
			}
			continue
		}

		if kind, ok := checkType(slot.Type, value); !ok {
			result.Errors = append(result.Errors, models.Issue{
				FieldName: slot.Name,
				Message:   fmt.Sprintf("slot '%s' expects %s, got %s", slot.Name, slot.Type, kind),
				Severity:  models.SeverityError,
			})
		}
	}

	// Pass 2: fields the template does not declare. Map iteration order is
	// not stable, so unknown fields are reported in sorted name order to
	// keep results reproducible for identical inputs.
	slotMap := tmpl.SlotMap()
	var unknown []string
	for name := range doc.Fields {
		if _, declared := slotMap[name]; !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		result.Warnings = append(result.Warnings, models.Issue{
			FieldName: name,
			Message:   fmt.Sprintf("field '%s' is not declared by template '%s'", name, tmpl.ID),
			Severity:  models.SeverityWarning,
		})
	}

	return result, nil
}

// checkType reports whether value conforms to the slot type. The second
// return is the observed kind, used in error messages. Values arrive either
// from Go callers or from YAML decoding, so the numeric and list cases
// accept both native and decoded shapes.
func checkType(slotType models.SlotType, value any) (string, bool) {
	kind := kindOf(value)

	switch slotType {
	case models.SlotString:
		_, ok := value.(string)
		return kind, ok

	case models.SlotNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return kind, true
		}
		return kind, false

	case models.SlotBoolean:
		_, ok := value.(bool)
		return kind, ok

	case models.SlotStringList:
		switch list := value.(type) {
		case []string:
			return kind, true
		case []any:
			for _, elem := range list {
				if _, ok := elem.(string); !ok {
					return fmt.Sprintf("list containing %s", kindOf(elem)), false
				}
			}
			return kind, true
		}
		return kind, false
	}

	// Unknown slot types accept anything; template authoring owns the enum
	return kind, true
}

// kindOf names a value's kind the way slot types are spelled
func kindOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	case []string, []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", value)
	}
}
