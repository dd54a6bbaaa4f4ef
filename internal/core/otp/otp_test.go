package otp

import (
	"testing"
	"time"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), CodeLength)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
		seen[code] = true
	}
	// 100 draws from a million-value space colliding down to a handful
	// would mean the generator is broken.
	if len(seen) < 90 {
		t.Fatalf("only %d distinct codes out of 100 draws", len(seen))
	}
}

func TestGenerateCodeDigitDistribution(t *testing.T) {
	// Every digit must appear, and no digit's share may drift far from 10%.
	counts := make(map[byte]int)
	const draws = 2000
	for i := 0; i < draws; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		for i := 0; i < len(code); i++ {
			counts[code[i]]++
		}
	}

	total := draws * CodeLength
	for d := byte('0'); d <= '9'; d++ {
		if counts[d] == 0 {
			t.Fatalf("digit %q never generated in %d samples", d, total)
		}
		// Expect ~10% each; 7%-13% is over 8 sigma out for 12000 samples.
		share := float64(counts[d]) / float64(total)
		if share < 0.07 || share > 0.13 {
			t.Fatalf("digit %q frequency %.3f outside [0.07, 0.13]", d, share)
		}
	}
}

func TestOTPValid(t *testing.T) {
	now := time.Unix(1700000000, 0)

	cases := []struct {
		name string
		otp  OTP
		want bool
	}{
		{"fresh", OTP{ExpiresAt: now.Add(30 * time.Second)}, true},
		{"expired", OTP{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires this instant", OTP{ExpiresAt: now}, false},
		{"used", OTP{ExpiresAt: now.Add(30 * time.Second), IsUsed: true}, false},
		{"used and expired", OTP{ExpiresAt: now.Add(-time.Second), IsUsed: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.otp.Valid(now); got != tc.want {
				t.Fatalf("Valid = %v, want %v", got, tc.want)
			}
		})
	}
}
