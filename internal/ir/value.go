package ir

import (
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the values used to describe the type
// graph canonically. Only IRString, IRInt, IRBool, IRArray and IRObject
// implement it. Floats and nulls are not representable, which keeps the
// canonical encoding unambiguous.
type IRValue interface {
	irValue() // Sealed
}

// IRString is a string description value.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer description value.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean description value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an ordered list of description values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject maps keys to description values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders differently above the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
