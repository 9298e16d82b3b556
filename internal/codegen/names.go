package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/cangen/internal/ir"
)

// exportName turns an interface identifier into an exported Go identifier.
// Separators are dropped and the first letter of each word is title-cased:
// "user_id" and "user id" both become "UserId".
func exportName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	// A Caser carries state; one per call keeps this safe for concurrent use.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		first := []rune(w)[0]
		b.WriteString(title.String(string(first)))
		b.WriteString(w[len(string(first)):])
	}

	out := b.String()
	if out == "" {
		return "X"
	}
	if r := []rune(out)[0]; unicode.IsDigit(r) || !unicode.IsUpper(r) {
		out = "X" + out
	}
	return out
}

// lowerFirst lower-cases the leading rune of an identifier.
func lowerFirst(s string) string {
	rs := []rune(s)
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToLower(rs[0])
	return string(rs)
}

// wireTypes maps primitive kinds onto the static types of package wire.
// empty has no inhabitants; it borrows Reserved as a placeholder type and
// the helpers reject every value.
var wireTypes = map[ir.PrimitiveKind]string{
	ir.Null:      "Null",
	ir.Reserved:  "Reserved",
	ir.Empty:     "Reserved",
	ir.Bool:      "Bool",
	ir.Text:      "Text",
	ir.Blob:      "Blob",
	ir.Principal: "Principal",
	ir.Nat:       "Nat",
	ir.Nat8:      "Nat8",
	ir.Nat16:     "Nat16",
	ir.Nat32:     "Nat32",
	ir.Nat64:     "Nat64",
	ir.Int:       "Int",
	ir.Int8:      "Int8",
	ir.Int16:     "Int16",
	ir.Int32:     "Int32",
	ir.Int64:     "Int64",
	ir.Float32:   "Float32",
	ir.Float64:   "Float64",
}

// fieldNames assigns unique exported Go field names to member names in
// order. A later member whose name collides gets a numeric suffix.
func fieldNames(members []ir.Member) []string {
	seen := make(map[string]bool, len(members))
	out := make([]string, len(members))
	for i, m := range members {
		name := exportName(m.Name)
		for n := 2; seen[name]; n++ {
			name = exportName(m.Name) + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

