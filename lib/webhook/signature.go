// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/http"
	"strings"
)

// ErrSignature is wrapped by every signature verification failure.
// Messages never include the expected digest.
var ErrSignature = errors.New("webhook signature invalid")

const (
	headerSignature256  = "X-Hub-Signature-256"
	headerSignatureSHA1 = "X-Hub-Signature"
)

// VerifySignature checks the delivery's HMAC against secret. The
// SHA-256 header is preferred; the SHA-1 header is accepted only when
// the SHA-256 header is absent.
func VerifySignature(secret, body []byte, header http.Header) error {
	if signature := header.Get(headerSignature256); signature != "" {
		return verifyHMAC(sha256.New, "sha256=", secret, body, signature)
	}
	if signature := header.Get(headerSignatureSHA1); signature != "" {
		return verifyHMAC(sha1.New, "sha1=", secret, body, signature)
	}
	return fmt.Errorf("%w: no signature header", ErrSignature)
}

func verifyHMAC(newHash func() hash.Hash, prefix string, secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: secret is empty", ErrSignature)
	}
	signatureBytes, err := hex.DecodeString(strings.TrimPrefix(signature, prefix))
	if err != nil {
		return fmt.Errorf("%w: invalid hex: %w", ErrSignature, err)
	}

	mac := hmac.New(newHash, secret)
	mac.Write(body)
	if subtle.ConstantTimeCompare(mac.Sum(nil), signatureBytes) != 1 {
		return fmt.Errorf("%w: %s mismatch", ErrSignature, strings.TrimSuffix(prefix, "="))
	}
	return nil
}

// Sign returns the X-Hub-Signature-256 value for body, as GitHub would
// compute it. Tests use it to build signed deliveries.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
