package encryption

import (
	"context"
	"errors"
	"testing"

	"risk-service/internal/config"
)

func newLocalManager() *EncryptionManager {
	return NewEncryptionManager(&config.Config{}, nil)
}

func TestEncryptFieldRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr := newLocalManager()

	data, err := mgr.EncryptField(ctx, "AB1234567")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}
	if data.EncryptedValue == "" || data.EncryptedDEK == "" {
		t.Fatal("expected populated envelope")
	}
	if data.KeyID != "local" {
		t.Fatalf("key id = %q, want local", data.KeyID)
	}

	plain, err := mgr.DecryptField(ctx, data)
	if err != nil {
		t.Fatalf("DecryptField: %v", err)
	}
	if plain != "AB1234567" {
		t.Fatalf("round trip = %q, want AB1234567", plain)
	}
}

// Envelopes wrapped under the same master key all carry the same key id, so
// the plaintext DEK cache must be keyed by the wrapped DEK. This rotates the
// local secret to produce two envelopes with identical key ids but different
// data keys and checks the older one still decrypts.
func TestDecryptOlderEnvelopeAfterNewerEncrypt(t *testing.T) {
	ctx := context.Background()
	mgr := newLocalManager()

	t.Setenv("LOCAL_ENCRYPTION_SECRET", "first-secret")
	first, err := mgr.EncryptField(ctx, "older value")
	if err != nil {
		t.Fatalf("EncryptField(first): %v", err)
	}

	t.Setenv("LOCAL_ENCRYPTION_SECRET", "second-secret")
	second, err := mgr.EncryptField(ctx, "newer value")
	if err != nil {
		t.Fatalf("EncryptField(second): %v", err)
	}

	if first.KeyID != second.KeyID {
		t.Fatalf("key ids differ: %q vs %q", first.KeyID, second.KeyID)
	}
	if first.EncryptedDEK == second.EncryptedDEK {
		t.Fatal("expected distinct wrapped DEKs")
	}

	plain, err := mgr.DecryptField(ctx, first)
	if err != nil {
		t.Fatalf("DecryptField(first): %v", err)
	}
	if plain != "older value" {
		t.Fatalf("decrypted %q, want %q", plain, "older value")
	}

	plain, err = mgr.DecryptField(ctx, second)
	if err != nil {
		t.Fatalf("DecryptField(second): %v", err)
	}
	if plain != "newer value" {
		t.Fatalf("decrypted %q, want %q", plain, "newer value")
	}
}

func TestDecryptFieldRejectsTamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	mgr := newLocalManager()

	data, err := mgr.EncryptField(ctx, "AB1234567")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}

	data.EncryptedValue = "bm90IGEgdmFsaWQgZW52ZWxvcGU="
	if _, err := mgr.DecryptField(ctx, data); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("err = %v, want ErrDecryptionFailed", err)
	}
}
