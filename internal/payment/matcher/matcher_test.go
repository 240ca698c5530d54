package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/payment/matcher"
)

func txns(contents ...string) []domain.ProviderTransaction {
	out := make([]domain.ProviderTransaction, 0, len(contents))
	for i, c := range contents {
		out = append(out, domain.ProviderTransaction{
			ID:              string(rune('a' + i)),
			TransferContent: c,
		})
	}
	return out
}

func TestMatchExact(t *testing.T) {
	got, tier := matcher.Match("DH1234", txns("DH1234"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierExact, tier)

	got, tier = matcher.Match("DH1234", txns("dh1234"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierExact, tier)
}

func TestMatchContainment(t *testing.T) {
	got, tier := matcher.Match("DH1234", txns("Chuyen tien DH1234 ok"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierContains, tier)
}

func TestMatchReverseContainment(t *testing.T) {
	// Provider truncated the reference but kept a recognizable core.
	got, tier := matcher.Match("DH1234-RETRY", txns("DH1234-RETR"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierReverseContains, tier)
}

func TestMatchNormalized(t *testing.T) {
	got, tier := matcher.Match("SUBUPG-0946", txns("SUB0946"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierNormalized, tier)

	got, tier = matcher.Match("SUB-UPG.0946", txns("subupg 0946"))
	require.NotNil(t, got)
	require.Equal(t, matcher.TierNormalized, tier)
}

func TestNormalizedRejectsShortDigitCores(t *testing.T) {
	got, _ := matcher.Match("A-12", txns("B12"))
	require.Nil(t, got)
}

func TestNoMatch(t *testing.T) {
	got, tier := matcher.Match("ABC", txns("XYZ", "DEF"))
	require.Nil(t, got)
	require.Empty(t, tier)
}

func TestTierOrderPrefersPrecision(t *testing.T) {
	candidates := txns("pay DH1234 thanks", "DH1234")
	got, tier := matcher.Match("DH1234", candidates)
	require.NotNil(t, got)
	require.Equal(t, matcher.TierExact, tier)
	require.Equal(t, "DH1234", got.TransferContent)
}

func TestEmptyInputs(t *testing.T) {
	got, _ := matcher.Match("", txns("DH1234"))
	require.Nil(t, got)

	got, _ = matcher.Match("DH1234", txns(""))
	require.Nil(t, got)
}
