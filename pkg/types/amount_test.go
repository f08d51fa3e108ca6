package types

import (
	"encoding/json"
	"testing"
)

const maxAmountDec = "340282366920938463463374607431768211455"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"zero", "0", "0", false},
		{"small", "1234", "1234", false},
		{"spaces", " 42 ", "42", false},
		{"max", maxAmountDec, maxAmountDec, false},
		{"above max", "340282366920938463463374607431768211456", "", true},
		{"negative", "-1", "", true},
		{"garbage", "12ab", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmount_SaturatingAdd(t *testing.T) {
	if got := NewAmount(2).SaturatingAdd(NewAmount(3)); got != NewAmount(5) {
		t.Errorf("2+3 = %s, want 5", got)
	}

	sum, clamped := MaxAmount().CheckedAdd(NewAmount(1))
	if !clamped {
		t.Error("max+1 should report clamping")
	}
	if sum != MaxAmount() {
		t.Errorf("max+1 = %s, want max", sum)
	}
}

func TestAmount_SaturatingSub(t *testing.T) {
	if got := NewAmount(10).SaturatingSub(NewAmount(4)); got != NewAmount(6) {
		t.Errorf("10-4 = %s, want 6", got)
	}

	diff, clamped := NewAmount(3).CheckedSub(NewAmount(5))
	if !clamped {
		t.Error("3-5 should report clamping")
	}
	if !diff.IsZero() {
		t.Errorf("3-5 = %s, want 0", diff)
	}

	if _, clamped := NewAmount(5).CheckedSub(NewAmount(5)); clamped {
		t.Error("5-5 should not clamp")
	}
}

func TestAmount_SaturatingMul(t *testing.T) {
	if got := NewAmount(100).SaturatingMul(NewAmount(2)); got != NewAmount(200) {
		t.Errorf("100*2 = %s, want 200", got)
	}
	if got := NewAmount(100).SaturatingMul(Amount{}); !got.IsZero() {
		t.Errorf("100*0 = %s, want 0", got)
	}

	prod, clamped := MaxAmount().CheckedMul(MaxAmount())
	if !clamped || prod != MaxAmount() {
		t.Errorf("max*max = %s clamped=%v, want max/true", prod, clamped)
	}

	// 2^64 * 2^64 = 2^128, one past the ceiling.
	twoPow64 := MustParseAmount("18446744073709551616")
	if _, clamped := twoPow64.CheckedMul(twoPow64); !clamped {
		t.Error("2^64 * 2^64 should clamp")
	}
}

func TestAmount_Bytes(t *testing.T) {
	a := MustParseAmount("81985529216486895") // 0x0123456789abcdef
	b := a.Bytes()
	if len(b) != AmountSize {
		t.Fatalf("Bytes() length = %d, want %d", len(b), AmountSize)
	}
	if b[8] != 0x01 || b[15] != 0xef {
		t.Errorf("Bytes() = %x, want big-endian layout", b)
	}

	got, err := AmountFromBytes(b)
	if err != nil {
		t.Fatalf("AmountFromBytes: %v", err)
	}
	if got != a {
		t.Errorf("roundtrip = %s, want %s", got, a)
	}

	if _, err := AmountFromBytes(b[:8]); err == nil {
		t.Error("AmountFromBytes should reject short input")
	}
}

func TestAmount_Uint64Clamp(t *testing.T) {
	if got := NewAmount(7).Uint64(); got != 7 {
		t.Errorf("Uint64() = %d, want 7", got)
	}
	if got := MaxAmount().Uint64(); got != ^uint64(0) {
		t.Errorf("Uint64() of max = %d, want MaxUint64", got)
	}
}

func TestAmount_JSON(t *testing.T) {
	type wrapper struct {
		A Amount `json:"a"`
	}

	data, err := json.Marshal(wrapper{A: MaxAmount()})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"a":"`+maxAmountDec+`"}` {
		t.Errorf("Marshal = %s", data)
	}

	var w wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatalf("Unmarshal string: %v", err)
	}
	if w.A != MaxAmount() {
		t.Errorf("Unmarshal = %s, want max", w.A)
	}

	if err := json.Unmarshal([]byte(`{"a":1000}`), &w); err != nil {
		t.Fatalf("Unmarshal number: %v", err)
	}
	if w.A != NewAmount(1000) {
		t.Errorf("Unmarshal number = %s, want 1000", w.A)
	}

	if err := json.Unmarshal([]byte(`{"a":"-5"}`), &w); err == nil {
		t.Error("negative amount should fail to decode")
	}
}

func TestAmount_Compare(t *testing.T) {
	a, b := NewAmount(1), NewAmount(2)
	if !a.Lt(b) || a.Gt(b) || a.Cmp(b) != -1 {
		t.Error("1 should be less than 2")
	}
	if b.Cmp(b) != 0 {
		t.Error("Cmp of equal amounts should be 0")
	}
}
