package core

import (
	"testing"
)

func TestBodySigner_KnownVector(t *testing.T) {
	signer, err := NewBodySigner([]byte("change-me-in-production"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	got := signer.Sign([]byte(`{"hello":"world"}`))
	want := "ca4f9821876a3f5b4571a5ded15ec6bebe60c674b0f47f7a71e4e76a4376f08c"
	if got != want {
		t.Fatalf("signature mismatch: got %s want %s", got, want)
	}
}

func TestBodySigner_RoundTrip(t *testing.T) {
	secret := []byte("shared-secret")
	signer, err := NewBodySigner(secret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	body := []byte(`{"a":1,"b":[true,null]}`)

	signature := signer.Sign(body)
	if !VerifySignature(secret, body, signature) {
		t.Fatalf("expected verification to succeed for same secret and body")
	}
}

func TestVerifySignature_RejectsWrongSecret(t *testing.T) {
	signer, err := NewBodySigner([]byte("secret-a"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	body := []byte(`{"a":1}`)
	signature := signer.Sign(body)

	if VerifySignature([]byte("secret-b"), body, signature) {
		t.Fatalf("expected verification to fail for different secret")
	}
}

func TestVerifySignature_RejectsModifiedBody(t *testing.T) {
	secret := []byte("shared-secret")
	signer, err := NewBodySigner(secret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signature := signer.Sign([]byte(`{"a":1}`))

	if VerifySignature(secret, []byte(`{"a":2}`), signature) {
		t.Fatalf("expected verification to fail for modified body")
	}
}

func TestVerifySignature_RejectsMalformedSignature(t *testing.T) {
	if VerifySignature([]byte("secret"), []byte(`{}`), "not-hex") {
		t.Fatalf("expected verification to fail for non-hex signature")
	}
}

func TestNewBodySigner_RequiresSecret(t *testing.T) {
	if _, err := NewBodySigner(nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
