package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/cangen/pkg/wire"
)

// DisplayString converts v to the string a script would get from String(v).
// Error objects render as "name: message".
func DisplayString(v Value) string {
	switch x := v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(x))
	case Number:
		return formatNumber(float64(x))
	case BigInt:
		return x.Big().String()
	case String:
		return string(x)
	case Bytes:
		parts := make([]string, len(x))
		for i, b := range x {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, ",")
	case Principal:
		return wire.Principal(x).String()
	case Array:
		parts := make([]string, len(x))
		for i, e := range x {
			switch e.(type) {
			case nil, Undefined, Null:
			default:
				parts[i] = DisplayString(e)
			}
		}
		return strings.Join(parts, ",")
	case *Object:
		return displayObject(x)
	case *Promise:
		return "[object Promise]"
	default:
		return "[object Unknown]"
	}
}

func displayObject(o *Object) string {
	if !o.IsError() {
		return "[object Object]"
	}
	name, msg := "Error", ""
	if v, ok := o.Get("name"); ok {
		name = DisplayString(v)
	}
	if v, ok := o.Get("message"); ok {
		msg = DisplayString(v)
	}
	return joinErrorParts(name, msg)
}

func joinErrorParts(name, msg string) string {
	switch {
	case name == "":
		return msg
	case msg == "":
		return name
	default:
		return name + ": " + msg
	}
}

// formatNumber follows the script's Number-to-string conversion for the
// common cases: integral values print without a fraction.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go writes e+21 / e-07; the script writes e+21 / e-7.
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + exp
}
