package model

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 - the messaging platform signs webhooks with HMAC-SHA1
	"encoding/hex"
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// SignatureHeader carries the webhook payload signature
const SignatureHeader = "X-Spark-Signature"

var (
	ErrSignatureMissing  = errors.New("signature is missing")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// ComputeSignature returns the hex encoded HMAC-SHA1 of body keyed by secret
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks claimed against the signature of body.
// An empty secret disables verification and always succeeds: deployments
// without a configured secret accept any payload.
func VerifySignature(secret string, body []byte, claimed string) error {
	if secret == "" {
		return nil
	}
	if claimed == "" {
		return goerr.Wrap(ErrSignatureMissing, "webhook signature verification failed")
	}

	expected := ComputeSignature(secret, body)
	if !hmac.Equal([]byte(expected), []byte(claimed)) {
		return goerr.Wrap(ErrSignatureMismatch, "webhook signature verification failed")
	}
	return nil
}
