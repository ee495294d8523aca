package jobform

import (
	"fmt"
	"sort"
)

// Field names a form field that can fail validation.
type Field int

const (
	FieldLocation Field = iota
	FieldDatetime
	FieldEndDatetime
	FieldRoles
)

var fieldKeys = map[Field]string{
	FieldLocation:    "location",
	FieldDatetime:    "datetime",
	FieldEndDatetime: "endDatetime",
	FieldRoles:       "roles",
}

var fieldMessages = map[Field]string{
	FieldLocation:    "Please select a valid location from the dropdown.",
	FieldDatetime:    "Please select a valid date and time.",
	FieldEndDatetime: "End time must not be before the start time.",
	FieldRoles:       "Please select at least one role.",
}

// String returns the field key.
func (f Field) String() string {
	if key, ok := fieldKeys[f]; ok {
		return key
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Message returns the text shown under the field when it fails.
func (f Field) Message() string {
	return fieldMessages[f]
}

// Errors is the result of the validation gate. An empty set means the form
// may be submitted.
type Errors map[Field]string

// Has reports whether f failed.
func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// Empty reports whether validation passed.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Fields lists failing fields in declaration order.
func (e Errors) Fields() []Field {
	fields := make([]Field, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

func (e Errors) add(f Field) {
	e[f] = f.Message()
}

func (e Errors) clone() Errors {
	out := make(Errors, len(e))
	for f, msg := range e {
		out[f] = msg
	}
	return out
}
