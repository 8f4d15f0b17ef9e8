// Package predicate defines the typed filtering predicates consumed by
// filter construction (spec.md §3, "FilteringType").
package predicate

import "fmt"

// Operation is a filtering comparison operator.
type Operation int

const (
	Equal Operation = iota
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual
	Between
	In
	NotIn
	StartsWith
	EndsWith
	Contains
)

func (op Operation) String() string {
	switch op {
	case Equal:
		return "EQUAL"
	case NotEqual:
		return "NOT_EQUAL"
	case Greater:
		return "GREATER"
	case GreaterEqual:
		return "GREATER_EQUAL"
	case Less:
		return "LESS"
	case LessEqual:
		return "LESS_EQUAL"
	case Between:
		return "BETWEEN"
	case In:
		return "IN"
	case NotIn:
		return "NOT_IN"
	case StartsWith:
		return "STARTS_WITH"
	case EndsWith:
		return "ENDS_WITH"
	case Contains:
		return "CONTAINS"
	default:
		return "UNKNOWN"
	}
}

// Value is a single typed literal used as predicate input or a numeric
// filter's resolved term value.
type Value struct {
	Int    int64
	Uint   uint64
	Float  float64
	Str    string
	IsInt  bool
	IsUint bool
	IsFloat bool
	IsStr  bool
}

// IntValue builds an integer Value.
func IntValue(v int64) Value { return Value{Int: v, IsInt: true} }

// UintValue builds an unsigned Value.
func UintValue(v uint64) Value { return Value{Uint: v, IsUint: true} }

// FloatValue builds a floating Value.
func FloatValue(v float64) Value { return Value{Float: v, IsFloat: true} }

// StringValue builds a string Value.
func StringValue(v string) Value { return Value{Str: v, IsStr: true} }

func (v Value) String() string {
	switch {
	case v.IsInt:
		return fmt.Sprintf("%d", v.Int)
	case v.IsUint:
		return fmt.Sprintf("%d", v.Uint)
	case v.IsFloat:
		return fmt.Sprintf("%g", v.Float)
	case v.IsStr:
		return v.Str
	default:
		return "<empty>"
	}
}

// Predicate is a single filtering triple: (operation, property, values).
// Equality over its Fingerprint is the FilterCache key (spec.md §3).
type Predicate struct {
	Operation Operation
	Property  string
	Values    []Value
}

// Fingerprint returns a stable, collision-resistant string identifying this
// predicate's identity for cache lookups. Two predicates with the same
// operation, property and values produce the same fingerprint.
func (p Predicate) Fingerprint() string {
	s := fmt.Sprintf("%s|%s|%d", p.Operation, p.Property, len(p.Values))
	for _, v := range p.Values {
		s += "|" + v.String()
	}
	return s
}
