package model

import "time"

// ValueKind tags the dynamic type of an untyped database cell (Design Notes
// §9: "a row as an ordered map of column name → tagged value").
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindBool
	KindTime
	KindDecimal
)

// Value is a tagged union over a single DB cell. The literal encoder in
// EXTRACT_LOAD (internal/warehouse) dispatches on Kind.
type Value struct {
	Kind    ValueKind
	Payload any
}

func NullValue() Value             { return Value{Kind: KindNull} }
func Int64Value(v int64) Value     { return Value{Kind: KindInt64, Payload: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Payload: v} }
func StringValue(v string) Value   { return Value{Kind: KindString, Payload: v} }
func BytesValue(v []byte) Value    { return Value{Kind: KindBytes, Payload: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBool, Payload: v} }
func TimeValue(v time.Time) Value  { return Value{Kind: KindTime, Payload: v} }
func DecimalValue(v string) Value  { return Value{Kind: KindDecimal, Payload: v} }

// FromAny wraps a driver-returned value into a tagged Value, classifying by
// Go runtime type the way pgx surfaces untyped rows.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case int64:
		return Int64Value(t)
	case int32:
		return Int64Value(int64(t))
	case int:
		return Int64Value(int64(t))
	case float64:
		return Float64Value(t)
	case float32:
		return Float64Value(float64(t))
	case string:
		return StringValue(t)
	case []byte:
		return BytesValue(t)
	case bool:
		return BoolValue(t)
	case time.Time:
		return TimeValue(t)
	default:
		return Value{Kind: KindString, Payload: v}
	}
}

// NamedValue pairs a column name with its value, preserving the source's
// column ordering.
type NamedValue struct {
	Column string
	Value  Value
}

// Row is an ordered sequence of named values, one per column, in the order
// the streaming cursor yielded them.
type Row []NamedValue

// Get returns the value for the named column and whether it was present.
func (r Row) Get(column string) (Value, bool) {
	for _, nv := range r {
		if nv.Column == column {
			return nv.Value, true
		}
	}
	return Value{}, false
}

// Columns returns the row's column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, nv := range r {
		cols[i] = nv.Column
	}
	return cols
}

// Values returns the row's values in column order.
func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, nv := range r {
		vals[i] = nv.Value.Payload
	}
	return vals
}
