// Package merchant canonicalizes free-text merchant and description strings
// so they can be used as stable cache keys and rule inputs.
package merchant

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Payment rails and card-processor prefixes that precede the real merchant.
	prefixPattern = regexp.MustCompile(`^(?:(?:compra|debito|deb|credito|cred|aut|automatico|pos|visa|master|mastercard|amex|cabal|maestro|trf|transf|transferencia|mp|merpago|mercpago|mercadopago|mercado pago|payu|dlo|dlocal|paypal)\b[\s*.:-]*)+`)
	// Legal-entity suffixes.
	suffixPattern = regexp.MustCompile(`\s+(?:s\s?a|s\s?r\s?l|s\s?a\s?s|s\s?a\s?u|srl|sa|sas|sau|inc|llc|ltd|corp)$`)
	longNumbers   = regexp.MustCompile(`\d{5,}`)
	nonWord       = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaces        = regexp.MustCompile(`\s+`)
)

// aliases folds known spellings of the same merchant onto one name.
// Entries are matched in order, first as the whole name, then as a word
// prefix unless wholeOnly is set.
var aliases = []struct {
	from, to  string
	wholeOnly bool
}{
	// Payment rails: "MERCADOPAGO*COTO" is Coto, only the bare name is the wallet.
	{"mercadopago", "mercado pago", true},
	{"mercado libre", "mercadolibre", false},
	{"mcdonald s", "mcdonalds", false},
	{"mc donalds", "mcdonalds", false},
	{"pedidos ya", "pedidosya", false},
	{"uber eats", "uber eats", false},
	{"uber trip", "uber", false},
	{"uber rides", "uber", false},
	{"netflix com", "netflix", false},
	{"spotify p", "spotify", false},
	{"google youtube", "youtube", false},
	{"carrefour ar", "carrefour", false},
	{"supermercados dia", "dia", false},
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, strips diacritics and collapses whitespace.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(spaces.ReplaceAllString(strings.ToLower(folded), " "))
}

// Normalize returns the canonical form of a raw merchant name.
// The result is lowercase ASCII words separated by single spaces.
func Normalize(raw string) string {
	s := Fold(raw)
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "*", " ")
	s = nonWord.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if stripped := strings.TrimSpace(prefixPattern.ReplaceAllString(s, "")); stripped != "" {
		s = stripped
	}
	s = longNumbers.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	s = suffixPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	for _, a := range aliases {
		if s == a.from || (!a.wholeOnly && strings.HasPrefix(s, a.from+" ")) {
			return a.to
		}
	}
	return s
}

// MemoryKey identifies a merchant/description in the learned memory. The
// normalized merchant is preferred; the folded description is the fallback.
func MemoryKey(rawMerchant, description string) string {
	if m := Normalize(rawMerchant); m != "" {
		return "m:" + m
	}
	if d := Fold(description); d != "" {
		return "d:" + d
	}
	return ""
}
