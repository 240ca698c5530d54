package gateway

import (
	"crypto/subtle"
	"strings"
)

// VerifyWebhookToken checks the bearer-style token the provider sends on
// webhook deliveries against the configured secret. The comparison is
// constant time.
func VerifyWebhookToken(authHeader, secret string) bool {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return false
	}

	token := extractToken(authHeader)
	if token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// extractToken accepts both "Bearer <token>" and "Apikey <token>" schemes;
// providers are not consistent about which they send.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "apikey":
		return strings.TrimSpace(parts[1])
	}
	return ""
}
