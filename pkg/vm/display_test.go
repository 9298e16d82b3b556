package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayString(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"string", String("boom"), "boom"},
		{"undefined", Undefined{}, "undefined"},
		{"nil", nil, "undefined"},
		{"null", Null{}, "null"},
		{"bool", Bool(false), "false"},
		{"integral number", Number(42), "42"},
		{"fraction", Number(1.5), "1.5"},
		{"negative zero", Number(math.Copysign(0, -1)), "0"},
		{"nan", Number(math.NaN()), "NaN"},
		{"infinity", Number(math.Inf(-1)), "-Infinity"},
		{"large", Number(1e21), "1e+21"},
		{"small", Number(1e-7), "1e-7"},
		{"bigint", NewBigInt(-7), "-7"},
		{"array", Array{Number(1), Null{}, String("x")}, "1,,x"},
		{"bytes", Bytes{1, 2, 255}, "1,2,255"},
		{"error", NewError("TypeError", "bad"), "TypeError: bad"},
		{"error without message", NewError("RangeError", ""), "RangeError"},
		{"plain object", NewObject(Prop{"name", String("x")}, Prop{"message", String("y")}), "[object Object]"},
		{"principal", Principal{0x04}, "2vxsx-fae"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayString(tt.value))
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "number 300", Describe(Number(300)))
	assert.Equal(t, `string "a"`, Describe(String("a")))
	assert.Equal(t, "bigint 5n", Describe(NewBigInt(5)))
	assert.Equal(t, "array of length 2", Describe(Array{Null{}, Null{}}))
	assert.Equal(t, "object", Describe(NewObject()))
	assert.Equal(t, "undefined", Describe(Undefined{}))
}

func TestObjectKeepsInsertionOrder(t *testing.T) {
	o := NewObject(Prop{"b", Number(1)}, Prop{"a", Number(2)})
	o.Set("c", Number(3))
	o.Set("b", Number(4))

	assert.Equal(t, []string{"b", "a", "c"}, o.Keys())
	v, ok := o.Get("b")
	assert.True(t, ok)
	assert.Equal(t, Number(4), v)

	o.Delete("a")
	assert.Equal(t, []string{"b", "c"}, o.Keys())
	assert.False(t, o.Has("a"))
	assert.Equal(t, 2, o.Len())
}
