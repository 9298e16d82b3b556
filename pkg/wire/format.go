package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders v in a compact text form for diagnostics and reports.
func Format(v Value) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Null:
		sb.WriteString("null")
	case Reserved:
		sb.WriteString("reserved")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case Nat:
		sb.WriteString(x.Big().String())
	case Int:
		sb.WriteString(x.Big().String())
	case Nat8, Nat16, Nat32, Nat64, Int8, Int16, Int32, Int64:
		fmt.Fprintf(sb, "%d : %s", x, KindOf(x))
	case Float32:
		fmt.Fprintf(sb, "%s : float32", strconv.FormatFloat(float64(x), 'g', -1, 32))
	case Float64:
		fmt.Fprintf(sb, "%s : float64", strconv.FormatFloat(float64(x), 'g', -1, 64))
	case Text:
		sb.WriteString(strconv.Quote(string(x)))
	case Blob:
		fmt.Fprintf(sb, "blob %q", []byte(x))
	case Principal:
		fmt.Fprintf(sb, "principal %q", x.String())
	case Vec:
		sb.WriteString("vec {")
		for i, e := range x {
			if i > 0 {
				sb.WriteString("; ")
			}
			format(sb, e)
		}
		sb.WriteString("}")
	case Tuple:
		sb.WriteString("(")
		for i, e := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, e)
		}
		sb.WriteString(")")
	case Opt:
		if x.Value == nil {
			sb.WriteString("null : opt")
			return
		}
		sb.WriteString("opt ")
		format(sb, x.Value)
	case Record:
		sb.WriteString("record {")
		for i, f := range x.Fields {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(" = ")
			format(sb, f.Value)
		}
		sb.WriteString("}")
	case Variant:
		sb.WriteString("variant {")
		sb.WriteString(x.Tag)
		if _, unit := x.Value.(Null); !unit {
			sb.WriteString(" = ")
			format(sb, x.Value)
		}
		sb.WriteString("}")
	case Func:
		fmt.Fprintf(sb, "func %q.%s", x.Principal.String(), x.Method)
	}
}
