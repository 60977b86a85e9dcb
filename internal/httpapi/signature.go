package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// signatureHeader returns the first signature header the sender supplied
func signatureHeader(r *http.Request) string {
	if sig := r.Header.Get("X-Signature"); sig != "" {
		return sig
	}
	return r.Header.Get("X-Hub-Signature-256")
}

// validSignature checks a hex HMAC-SHA256 of body, optionally prefixed "sha256="
func validSignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
