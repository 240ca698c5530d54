// Package matcher correlates a transfer reference against the free-text
// content of provider transactions. Banks and intermediaries mangle the
// reference in different ways, so matching runs through ordered tiers from
// strictest to loosest; the tier order is part of the contract.
package matcher

import (
	"strings"

	"github.com/tabpay/tabpay/internal/payment/domain"
)

const (
	TierExact           = "exact"
	TierContains        = "contains"
	TierReverseContains = "reverse_contains"
	TierNormalized      = "normalized"
)

type tier struct {
	name  string
	match func(target, content string) bool
}

var tiers = []tier{
	{TierExact, matchExact},
	{TierContains, matchContains},
	{TierReverseContains, matchReverseContains},
	{TierNormalized, matchNormalized},
}

// Match returns the first transaction whose transfer content matches the
// target reference. All candidates are tried at a tier before the next,
// looser tier is considered. The second return value names the tier that
// hit; both are zero when nothing matches.
func Match(target string, candidates []domain.ProviderTransaction) (*domain.ProviderTransaction, string) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ""
	}
	for _, t := range tiers {
		for i := range candidates {
			content := strings.TrimSpace(candidates[i].TransferContent)
			if content == "" {
				continue
			}
			if t.match(target, content) {
				return &candidates[i], t.name
			}
		}
	}
	return nil, ""
}

func matchExact(target, content string) bool {
	return strings.EqualFold(target, content)
}

func matchContains(target, content string) bool {
	return strings.Contains(strings.ToLower(content), strings.ToLower(target))
}

func matchReverseContains(target, content string) bool {
	return strings.Contains(strings.ToLower(target), strings.ToLower(content))
}

func matchNormalized(target, content string) bool {
	nt := normalize(target)
	nc := normalize(content)
	if nt == "" || nc == "" {
		return false
	}
	if strings.Contains(nc, nt) || strings.Contains(nt, nc) {
		return true
	}
	// Some banks rewrite the alpha prefix of a reference but keep its
	// numeric core intact (SUBUPG-0946 arrives as SUB0946).
	dt := digits(nt)
	dc := digits(nc)
	return len(dt) >= minDigitCore && dt == dc
}

// minDigitCore keeps short numeric fragments from matching by accident.
const minDigitCore = 3

// normalize strips the separators providers commonly inject into transfer
// descriptions and uppercases the rest.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
