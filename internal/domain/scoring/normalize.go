package scoring

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// foldPool holds transformer chains; a chain is stateful and not safe for
// concurrent use.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			cases.Fold(),
			norm.NFC,
		)
	},
}

// fold maps s to a caseless, accentless, half-width form for keyword matching,
// so "ＣＥＯ" and "Diréctor" match "ceo" and "director".
func fold(s string) string {
	if s == "" {
		return ""
	}
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, strings.ToValidUTF8(s, ""))
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// words splits folded text into letter and digit runs.
func words(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
