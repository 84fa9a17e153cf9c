package csvimport

import (
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
)

// FieldRule defines validation rules for a field
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MaxLength int
	MinValue  *decimal.Decimal
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MaxLength sets the maximum length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets the minimum numeric value
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows against a set of rules, in rule order.
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow validates all fields in a row and reports whether it passed.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		if !v.validateField(row.LineNumber, rule, row.Get(rule.Column)) {
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) validateField(line int, rule FieldRule, value string) bool {
	if value == "" {
		if rule.Required {
			v.errors.AddRequiredError(line, rule.Column)
			return false
		}
		return true
	}

	switch rule.Type {
	case TypeInt:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			v.errors.AddTypeError(line, rule.Column, string(rule.Type), value)
			return false
		}
	case TypeDecimal:
		if _, err := decimal.NewFromString(value); err != nil {
			v.errors.AddTypeError(line, rule.Column, string(rule.Type), value)
			return false
		}
	}

	ok := true
	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		v.errors.AddLengthError(line, rule.Column, rule.MaxLength)
		ok = false
	}

	if rule.MinValue != nil && rule.Type != TypeString {
		d, _ := decimal.NewFromString(value)
		if d.LessThan(*rule.MinValue) {
			v.errors.AddRangeError(line, rule.Column, rule.MinValue.String(), value)
			ok = false
		}
	}

	return ok
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}
