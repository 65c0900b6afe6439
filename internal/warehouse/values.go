package warehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pgmigrate/internal/model"
)

// literalSQL renders one cell as a literal SQL fragment suitable for a
// VALUES(...) list, grounded on Design Notes §9's tag dispatch table.
func literalSQL(v model.Value) string {
	switch v.Kind {
	case model.KindNull:
		return "NULL"
	case model.KindBool:
		if b, ok := v.Payload.(bool); ok && b {
			return "TRUE"
		}
		return "FALSE"
	case model.KindInt64:
		return strconv.FormatInt(v.Payload.(int64), 10)
	case model.KindFloat64:
		return strconv.FormatFloat(v.Payload.(float64), 'g', -1, 64)
	case model.KindDecimal:
		return v.Payload.(string)
	case model.KindString:
		return quoteSQLString(fmt.Sprint(v.Payload))
	case model.KindBytes:
		b, _ := v.Payload.([]byte)
		return fmt.Sprintf("X'%x'", b)
	case model.KindTime:
		t, ok := v.Payload.(time.Time)
		if !ok {
			return "NULL"
		}
		return fmt.Sprintf("TIMESTAMP '%s'", t.UTC().Format("2006-01-02 15:04:05.000"))
	default:
		return quoteSQLString(fmt.Sprint(v.Payload))
	}
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// buildValuesRow renders one row as a parenthesized literal tuple in
// columns order.
func buildValuesRow(row model.Row, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		v, ok := row.Get(c)
		if !ok {
			v = model.NullValue()
		}
		parts[i] = literalSQL(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
