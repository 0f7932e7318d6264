package crypto

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestRandomHex(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr error
	}{
		{name: "minimum entropy", n: MinTokenBytes},
		{name: "magic token size", n: TokenBytes},
		{name: "large", n: 64},
		{name: "too short", n: 8, wantErr: ErrTokenTooShort},
		{name: "zero", n: 0, wantErr: ErrTokenTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RandomHex(tt.n)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RandomHex(%d) error = %v, want %v", tt.n, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RandomHex(%d) unexpected error: %v", tt.n, err)
			}
			if len(got) != tt.n*2 {
				t.Errorf("RandomHex(%d) length = %d, want %d", tt.n, len(got), tt.n*2)
			}
			if _, err := hex.DecodeString(got); err != nil {
				t.Errorf("RandomHex(%d) is not hex: %v", tt.n, err)
			}
		})
	}
}

func TestNewMagicTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		tok, err := NewMagicToken()
		if err != nil {
			t.Fatalf("NewMagicToken() unexpected error: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("NewMagicToken() produced duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
