package wallet

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

const (
	vectorMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testnetMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
)

func TestGenerateMnemonic(t *testing.T) {
	m1, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if words := strings.Fields(m1); len(words) != 24 {
		t.Errorf("mnemonic has %d words, want 24", len(words))
	}
	if !ValidateMnemonic(m1) {
		t.Error("generated mnemonic should validate")
	}

	m2, err := GenerateMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if m1 == m2 {
		t.Error("two generated mnemonics should differ")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		want     bool
	}{
		{"12 words", vectorMnemonic, true},
		{"24 words", testnetMnemonic, true},
		{"messy whitespace", "  ABANDON abandon\nabandon abandon abandon abandon abandon abandon abandon abandon abandon about ", true},
		{"bad checksum", strings.Replace(vectorMnemonic, "about", "abandon", 1), false},
		{"unknown word", "not valid words here", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.want {
				t.Errorf("ValidateMnemonic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// Standard BIP-39 test vector with passphrase "TREZOR".
	seed, err := SeedFromMnemonic(vectorMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
}

func TestSeedFromMnemonic_Passphrase(t *testing.T) {
	seed1, err := SeedFromMnemonic(vectorMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	seed2, err := SeedFromMnemonic(vectorMnemonic, "my passphrase")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(seed1, seed2) {
		t.Error("different passphrases should produce different seeds")
	}
	if len(seed1) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(seed1), SeedSize)
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	for _, m := range []string{"", "not valid words here"} {
		if _, err := SeedFromMnemonic(m, ""); err == nil {
			t.Errorf("SeedFromMnemonic(%q) should fail", m)
		}
	}
}
