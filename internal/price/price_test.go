package price

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPriceUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Price
		wantErr bool
	}{
		{"zero", `"0"`, 0, false},
		{"one", `"1"`, 1_000_000, false},
		{"half", `"0.5"`, 500_000, false},
		{"quarter", `"0.25"`, 250_000, false},
		{"typical price", `"0.123456"`, 123_456, false},
		{"needs padding 1 digit", `"0.1"`, 100_000, false},
		{"needs padding 3 digits", `"0.123"`, 123_000, false},
		{"needs truncation", `"0.1234567"`, 123_456, false},
		{"raw number no quotes", `0.25`, 250_000, false},
		{"leading dot", `".5"`, 500_000, false},
		{"whole with frac", `"1.5"`, 1_500_000, false},
		{"small frac", `"0.000001"`, 1, false},
		{"empty string", `""`, 0, true},
		{"letters", `"abc"`, 0, true},
		{"negative", `"-0.5"`, 0, true},
		{"lone dot", `"."`, 0, true},
		{"exponent", `1e-3`, 0, true},
		{"null", `null`, 0, true},
		{"largest integer part", `"999999999999.5"`, 999_999_999_999_500_000, false},
		{"leading zeros ignored", `"0000000000000.25"`, 250_000, false},
		{"integer part overflows", `"9223372036854"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Price
			err := got.UnmarshalJSON([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr = %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
}

func TestParseTooLarge(t *testing.T) {
	if _, err := Parse("12345678901234567890.5"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestPriceInStruct(t *testing.T) {
	type Level struct {
		Price Price `json:"price"`
	}

	var l Level
	if err := json.Unmarshal([]byte(`{"price": "0.75"}`), &l); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if l.Price != 750_000 {
		t.Errorf("got %d, want 750000", l.Price)
	}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"price":"0.75"}` {
		t.Errorf("got %s", out)
	}
}

func TestFloatConversions(t *testing.T) {
	if got := Price(420_000).Float64(); got != 0.42 {
		t.Errorf("Float64 = %v, want 0.42", got)
	}
	if got := FromFloat(0.655); got != 655_000 {
		t.Errorf("FromFloat = %d, want 655000", got)
	}
}

func BenchmarkPriceUnmarshalJSON(b *testing.B) {
	data := []byte(`"0.123456"`)
	var p Price

	for i := 0; i < b.N; i++ {
		_ = p.UnmarshalJSON(data)
	}
}
