// Package fingerprint derives the identity keys of a transaction: the dedup
// hash of a specific occurrence and the cache key of its semantic content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/merchant"
)

// Fields identifies one occurrence of a transaction.
type Fields struct {
	Amount        float64
	When          *time.Time
	MerchantClean string
	AccountLast4  string
	BankMessageID string
}

// DedupHash returns a stable fingerprint of a transaction occurrence.
// Repeat purchases at the same merchant differ by date, account or bank message id.
func DedupHash(f Fields) string {
	when := ""
	if f.When != nil && !f.When.IsZero() {
		when = f.When.UTC().Format(time.RFC3339)
	}
	return digest("dedup",
		formatAmount(f.Amount),
		when,
		f.MerchantClean,
		strings.TrimSpace(f.AccountLast4),
		strings.TrimSpace(f.BankMessageID),
	)
}

// CacheKey returns the categorization cache key. It leaves out when, account and
// bank message id so identical descriptions share one entry.
func CacheKey(description, merchantClean string, amount float64, currency domain.Currency) string {
	return "cat:" + digest("cache",
		merchant.Fold(description),
		merchantClean,
		formatAmount(amount),
		string(currency),
	)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func digest(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, p := range parts {
		// Length prefix keeps "a|b" and "a" + "|b" apart.
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
