package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "categories[0].windows[1].capacity".
	Field string

	// Message is a human-readable description of the problem.
	Message string
}

// Error returns the formatted field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation problem found in a rule table.
// A broken table fails at startup with all errors listed at once.
type ValidationError struct {
	Errors []FieldError
}

// Error returns all collected errors as one message.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "rule table validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("rule table validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "rule table validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks a rule table and returns a ValidationError listing every
// problem, or nil when the table is valid. Defaults must have been applied
// first.
func Validate(v *Venue) error {
	var errs []FieldError

	if v.Venue == "" {
		errs = append(errs, FieldError{"venue", "must not be empty"})
	}

	if v.ReconcilePolicy != ReconcileOverwrite && v.ReconcilePolicy != ReconcileRaiseOnly {
		errs = append(errs, FieldError{"reconcile_policy",
			fmt.Sprintf("must be %q or %q, got %q", ReconcileOverwrite, ReconcileRaiseOnly, v.ReconcilePolicy)})
	}

	if len(v.Categories) == 0 {
		errs = append(errs, FieldError{"categories", "at least one category is required"})
	}

	names := make(map[string]bool, len(v.Categories))
	labels := make(map[string]map[string]bool, len(v.Categories))
	for ci, cat := range v.Categories {
		field := fmt.Sprintf("categories[%d]", ci)

		if cat.Name == "" {
			errs = append(errs, FieldError{field + ".name", "must not be empty"})
		} else if names[cat.Name] {
			errs = append(errs, FieldError{field + ".name", fmt.Sprintf("duplicate category %q", cat.Name)})
		}
		names[cat.Name] = true
		labels[cat.Name] = make(map[string]bool, len(cat.Windows))

		if len(cat.Windows) == 0 {
			errs = append(errs, FieldError{field + ".windows", "at least one window is required"})
		}
		for wi, w := range cat.Windows {
			errs = append(errs, validateWindow(fmt.Sprintf("%s.windows[%d]", field, wi), w)...)
			if w.Label != "" {
				labels[cat.Name][w.Label] = true
			}
		}
	}

	if v.DefaultCategory == "" {
		errs = append(errs, FieldError{"default_category", "must be set when more than one category is defined"})
	} else if !names[v.DefaultCategory] {
		errs = append(errs, FieldError{"default_category", fmt.Sprintf("unknown category %q", v.DefaultCategory)})
	}

	for ri, r := range v.Rules {
		field := fmt.Sprintf("rules[%d]", ri)
		if r.Prefix == "" {
			errs = append(errs, FieldError{field + ".prefix", "must not be empty"})
		}
		if !names[r.Category] {
			errs = append(errs, FieldError{field + ".category", fmt.Sprintf("unknown category %q", r.Category)})
		}
	}

	for hi, h := range v.Headers {
		errs = append(errs, validateHeaderRule(fmt.Sprintf("headers[%d]", hi), h)...)
	}

	for level, table := range v.Tiers {
		field := fmt.Sprintf("tiers[%d]", level)
		if level < 0 {
			errs = append(errs, FieldError{field, "tier level must not be negative"})
		}
		for catName, caps := range table {
			if !names[catName] {
				errs = append(errs, FieldError{field, fmt.Sprintf("unknown category %q", catName)})
				continue
			}
			for label, capacity := range caps {
				if !labels[catName][NormalizeLabel(label)] {
					errs = append(errs, FieldError{field,
						fmt.Sprintf("category %q has no window labeled %q", catName, label)})
				}
				if capacity <= 0 {
					errs = append(errs, FieldError{field,
						fmt.Sprintf("capacity for %s/%s must be positive", catName, label)})
				}
			}
		}
	}

	if v.Tier != 0 {
		if _, ok := v.Tiers[v.Tier]; !ok {
			errs = append(errs, FieldError{"tier", fmt.Sprintf("no tier table for level %d", v.Tier)})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateWindow(field string, w Window) []FieldError {
	var errs []FieldError

	switch w.Dimension {
	case DimensionRaw, DimensionWeight, DimensionOrders:
	default:
		errs = append(errs, FieldError{field + ".dimension",
			fmt.Sprintf("must be %q, %q or %q, got %q", DimensionRaw, DimensionWeight, DimensionOrders, w.Dimension)})
	}

	if w.Capacity <= 0 {
		errs = append(errs, FieldError{field + ".capacity", "must be positive"})
	}
	if w.Duration <= 0 {
		errs = append(errs, FieldError{field + ".duration", "must be positive"})
	}

	switch w.Kind {
	case KindSliding, KindBucket:
	default:
		errs = append(errs, FieldError{field + ".kind",
			fmt.Sprintf("must be %q or %q, got %q", KindSliding, KindBucket, w.Kind)})
	}

	if w.Label != "" {
		if _, err := ParseWindowLabel(w.Label); err != nil {
			errs = append(errs, FieldError{field + ".label", err.Error()})
		}
	}

	return errs
}

func validateHeaderRule(field string, h HeaderRule) []FieldError {
	var errs []FieldError

	switch {
	case h.Name == "" && h.Prefix == "":
		errs = append(errs, FieldError{field, "one of name or prefix must be set"})
	case h.Name != "" && h.Prefix != "":
		errs = append(errs, FieldError{field, "name and prefix are mutually exclusive"})
	case h.Name != "" && h.Label == "":
		errs = append(errs, FieldError{field + ".label", "required for exact-name rules"})
	}

	switch h.Dimension {
	case DimensionRaw, DimensionWeight, DimensionOrders:
	default:
		errs = append(errs, FieldError{field + ".dimension",
			fmt.Sprintf("must be %q, %q or %q, got %q", DimensionRaw, DimensionWeight, DimensionOrders, h.Dimension)})
	}

	if h.Label != "" {
		if _, err := ParseWindowLabel(h.Label); err != nil {
			errs = append(errs, FieldError{field + ".label", err.Error()})
		}
	}

	switch h.Value {
	case "", ValueUsed, ValueRemaining:
	default:
		errs = append(errs, FieldError{field + ".value",
			fmt.Sprintf("must be %q or %q, got %q", ValueUsed, ValueRemaining, h.Value)})
	}

	return errs
}
