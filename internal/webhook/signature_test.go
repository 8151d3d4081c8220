/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package webhook

import (
	"testing"
)

const reapPayload = `{"provider":"rax-dfw"}`

// TestValidateSignature_ValidSignature verifies that a correctly signed payload is accepted
func TestValidateSignature_ValidSignature(t *testing.T) {
	secret := "reap-secret"
	payload := []byte(reapPayload)
	// Precomputed HMAC-SHA256: echo -n '{"provider":"rax-dfw"}' | openssl dgst -sha256 -hmac 'reap-secret'
	signature := "sha256=58269fdc032589fe2d527baf934437fd8a3ec4f0cae3978106aeebf83d04ee60"

	if !ValidateSignature(payload, signature, secret) {
		t.Error("ValidateSignature returns false for valid signature")
	}
	if got := Sign(payload, secret); got != signature {
		t.Errorf("Sign() = %q, want %q", got, signature)
	}
}

func TestValidateSignature_rejects(t *testing.T) {
	payload := []byte(reapPayload)
	valid := Sign(payload, "reap-secret")

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
	}{
		{"wrong digest", payload, "sha256=0000000000000000000000000000000000000000000000000000000000000000", "reap-secret"},
		{"missing signature", payload, "", "reap-secret"},
		{"sha1 signature", payload, "sha1=58269fdc032589fe2d527baf934437fd8a3ec4f0", "reap-secret"},
		{"empty secret", payload, valid, ""},
		{"other secret", payload, valid, "another-secret"},
		{"tampered payload", []byte(`{"provider":"hpcloud"}`), valid, "reap-secret"},
		{"bare hex", payload, valid[len("sha256="):], "reap-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ValidateSignature(tt.payload, tt.signature, tt.secret) {
				t.Error("ValidateSignature returns true, want false")
			}
		})
	}
}
