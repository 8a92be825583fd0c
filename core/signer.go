package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignatureHeader is the request header carrying the body signature. Fixed
// across dispatcher and receivers.
const SignatureHeader = "X-Webhook-Signature"

// BodySigner computes the lowercase-hex HMAC-SHA256 of a request body keyed
// by the shared webhook secret. The body passed to Sign must be byte
// identical to the body put on the wire.
type BodySigner struct {
	secret []byte
}

func NewBodySigner(secret []byte) (*BodySigner, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("core: webhook secret is required for signing")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &BodySigner{secret: key}, nil
}

func (s *BodySigner) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the HMAC over body and compares it to the
// presented hex signature in constant time. This is the receiver side of
// the signing contract; it is also what tests use to assert the round trip.
func VerifySignature(secret []byte, body []byte, signature string) bool {
	presented, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hmac.Equal(presented, mac.Sum(nil))
}

var _ PayloadSigner = (*BodySigner)(nil)
