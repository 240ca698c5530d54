package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Routing is the destination bank account a transfer QR points at.
type Routing struct {
	AccountNumber string
	BankCode      string
	AccountName   string
}

const (
	emvPayloadFormat    = "01"
	emvDynamicQR        = "12"
	napasGUID           = "A000000727"
	serviceAccountByNum = "QRIBFTTA"
	countryCode         = "VN"
)

var currencyNumeric = map[string]string{
	"VND": "704",
	"USD": "840",
}

// BuildQRPayload renders an EMVCo bank-transfer QR string for the given
// routing, amount and transfer reference. This is pure payload construction;
// no provider call is involved.
func BuildQRPayload(routing Routing, amount int64, currency, reference string) string {
	account := tlv("00", napasGUID) +
		tlv("01", tlv("00", routing.BankCode)+tlv("01", routing.AccountNumber)) +
		tlv("02", serviceAccountByNum)

	payload := tlv("00", emvPayloadFormat) +
		tlv("01", emvDynamicQR) +
		tlv("38", account) +
		tlv("53", numericCurrency(currency))

	if amount > 0 {
		payload += tlv("54", strconv.FormatInt(amount, 10))
	}

	payload += tlv("58", countryCode) +
		tlv("62", tlv("08", reference))

	payload += "6304"
	return payload + fmt.Sprintf("%04X", crc16(payload))
}

// BuildDeepLink returns the app-open link shown next to the QR for customers
// paying from the same device.
func BuildDeepLink(base string, routing Routing, amount int64, reference string) string {
	q := url.Values{}
	q.Set("acc", routing.AccountNumber)
	q.Set("bank", routing.BankCode)
	if amount > 0 {
		q.Set("amount", strconv.FormatInt(amount, 10))
	}
	q.Set("des", reference)
	return strings.TrimRight(base, "/") + "/pay?" + q.Encode()
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func numericCurrency(code string) string {
	if numeric, ok := currencyNumeric[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return numeric
	}
	return currencyNumeric["VND"]
}

// crc16 implements CRC-16/CCITT-FALSE as required by the EMVCo QR spec.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
