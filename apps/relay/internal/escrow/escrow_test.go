package escrow

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestNewAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	keyHex := hex.EncodeToString(crypto.FromECDSA(key))
	address := crypto.PubkeyToAddress(key.PublicKey)

	t.Run("matching address", func(t *testing.T) {
		account, err := NewAccount(keyHex, address.Hex())
		if err != nil {
			t.Fatalf("NewAccount returned error: %v", err)
		}
		if account.Address() != address {
			t.Errorf("derived address %s, want %s", account.Address().Hex(), address.Hex())
		}
	})

	t.Run("accepts 0x-prefixed key", func(t *testing.T) {
		if _, err := NewAccount("0x"+keyHex, address.Hex()); err != nil {
			t.Fatalf("NewAccount returned error: %v", err)
		}
	})

	t.Run("address mismatch is fatal", func(t *testing.T) {
		other := "0x1111111111111111111111111111111111111111"
		_, err := NewAccount(keyHex, other)
		if err == nil {
			t.Fatal("expected error for mismatched escrow address")
		}
		if !strings.Contains(err.Error(), "mismatch") {
			t.Errorf("error should name the mismatch, got: %v", err)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		if _, err := NewAccount("zz", address.Hex()); err == nil {
			t.Fatal("expected error for invalid private key")
		}
	})
}
