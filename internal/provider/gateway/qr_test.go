package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testRouting = Routing{
	AccountNumber: "0123456789",
	BankCode:      "970436",
	AccountName:   "TABPAY DEMO",
}

func TestBuildQRPayloadStructure(t *testing.T) {
	payload := BuildQRPayload(testRouting, 250000, "VND", "TPDH1234")

	require.True(t, strings.HasPrefix(payload, "000201"), "payload format indicator")
	require.Contains(t, payload, "0123456789")
	require.Contains(t, payload, "970436")
	require.Contains(t, payload, "5303704")
	require.Contains(t, payload, "54"+"06"+"250000")
	require.Contains(t, payload, "TPDH1234")
	require.Contains(t, payload, "6304")
	// Trailing CRC is four hex digits.
	require.Regexp(t, `6304[0-9A-F]{4}$`, payload)
}

func TestBuildQRPayloadOmitsZeroAmount(t *testing.T) {
	payload := BuildQRPayload(testRouting, 0, "VND", "TPDH1234")
	require.NotContains(t, payload, "5406")
}

func TestBuildQRPayloadCRCIsStable(t *testing.T) {
	a := BuildQRPayload(testRouting, 250000, "VND", "TPDH1234")
	b := BuildQRPayload(testRouting, 250000, "VND", "TPDH1234")
	require.Equal(t, a, b)

	c := BuildQRPayload(testRouting, 250001, "VND", "TPDH1234")
	require.NotEqual(t, a, c)
}

func TestBuildDeepLink(t *testing.T) {
	link := BuildDeepLink("https://pay.tabpay.dev", testRouting, 250000, "TPDH1234")
	require.Contains(t, link, "acc=0123456789")
	require.Contains(t, link, "bank=970436")
	require.Contains(t, link, "amount=250000")
	require.Contains(t, link, "des=TPDH1234")
}

func TestVerifyWebhookToken(t *testing.T) {
	require.True(t, VerifyWebhookToken("Bearer s3cret", "s3cret"))
	require.True(t, VerifyWebhookToken("Apikey s3cret", "s3cret"))
	require.False(t, VerifyWebhookToken("Bearer wrong", "s3cret"))
	require.False(t, VerifyWebhookToken("s3cret", "s3cret"))
	require.False(t, VerifyWebhookToken("", "s3cret"))
	require.False(t, VerifyWebhookToken("Bearer s3cret", ""))
}
