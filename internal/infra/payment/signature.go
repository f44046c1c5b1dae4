package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"ai-caption-backend/internal/domain/ports/adapter"
)

var _ adapter.SignatureVerifier = (*HMACVerifier)(nil)

// HMACVerifier validates provider confirmations. The provider signs the
// string "<order_id>|<payment_id>" with HMAC-SHA256 over the shared key
// secret and sends the hex digest alongside the payment id.
//
// The secret must stay in this process; it is never embedded in or sent to
// the mobile client.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify returns true iff signature is the hex HMAC-SHA256 digest of
// orderID + "|" + paymentID. Malformed input yields false, never an error:
// the caller treats any false identically to a failed verification.
func (v *HMACVerifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(orderID + "|" + paymentID))

	// hmac.Equal is constant-time; this is a security-sensitive comparison.
	return hmac.Equal(sig, h.Sum(nil))
}
