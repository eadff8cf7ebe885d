package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/costline/costline/internal/model"
)

// Checksum returns a deterministic content hash over a record set, as
// "sha256:<hex>". Records are canonically ordered by (date, account,
// service, amount) before hashing, so two semantically equal sets hash
// identically no matter how the upstream API ordered them, while any
// single-field mutation changes the digest. This is the number finance
// gets when they ask "is this the same data you showed us last week?".
func Checksum(records []model.CostRecord) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = canonicalLine(r)
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// canonicalLine serializes one record with explicit field order. Sorting
// these strings is equivalent to sorting by (date, account, service,
// amount) since the fields are pipe-delimited in that order.
func canonicalLine(r model.CostRecord) string {
	return strings.Join([]string{
		r.Date,
		r.AccountID,
		r.Service,
		strconv.FormatFloat(r.Amount, 'f', -1, 64),
		strconv.FormatFloat(r.BlendedAmount, 'f', -1, 64),
		r.Currency,
	}, "|")
}
