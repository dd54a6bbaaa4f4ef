package deeplink

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestCreateVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	codec := NewCodec("test-secret", clock)

	for _, id := range []int64{1, 42, 999999, 9223372036854775807} {
		token := codec.Create(id)
		got, ok := codec.Verify(token, DefaultMaxAge)
		if !ok {
			t.Fatalf("token for user %d did not verify", id)
		}
		if got != id {
			t.Fatalf("verify returned user %d, want %d", got, id)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	codec := NewCodec("test-secret", clock)

	token := codec.Create(7)

	clock.now = clock.now.Add(DefaultMaxAge + time.Second)
	if _, ok := codec.Verify(token, DefaultMaxAge); ok {
		t.Fatal("expected expired token to fail verification")
	}

	// Exactly at the boundary the token is still valid.
	clock.now = time.Unix(1700000000, 0).Add(DefaultMaxAge)
	if _, ok := codec.Verify(token, DefaultMaxAge); !ok {
		t.Fatal("token at the exact max-age boundary should still verify")
	}
}

func TestVerifyClockSkew(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	codec := NewCodec("test-secret", clock)

	token := codec.Create(7)

	// A token stamped in the local future still verifies.
	clock.now = clock.now.Add(-2 * time.Minute)
	if _, ok := codec.Verify(token, DefaultMaxAge); !ok {
		t.Fatal("future-stamped token should pass the age check")
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	codec := NewCodec("test-secret", clock)

	token := codec.Create(42)
	parts := strings.Split(token, "_")
	sig := parts[2]

	for i := 0; i < len(sig); i++ {
		flipped := []byte(sig)
		if flipped[i] == 'f' {
			flipped[i] = '0'
		} else {
			flipped[i] = 'f'
		}
		tampered := fmt.Sprintf("%s_%s_%s", parts[0], parts[1], string(flipped))
		if tampered == token {
			continue
		}
		if _, ok := codec.Verify(tampered, DefaultMaxAge); ok {
			t.Fatalf("tampered signature at position %d verified", i)
		}
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec := NewCodec("test-secret", &fakeClock{now: time.Unix(1700000000, 0)})

	cases := []string{
		"",
		"42",
		"42_1700000000",
		"42_1700000000_aaaa_bbbb",
		"abc_1700000000_0123456789abcdef",
		"42_notatime_0123456789abcdef",
		"_ _ ",
	}
	for _, tc := range cases {
		if _, ok := codec.Verify(tc, DefaultMaxAge); ok {
			t.Fatalf("malformed token %q verified", tc)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	token := NewCodec("secret-a", clock).Create(5)
	if _, ok := NewCodec("secret-b", clock).Verify(token, DefaultMaxAge); ok {
		t.Fatal("token signed with a different secret verified")
	}
}

func TestStartURL(t *testing.T) {
	got := StartURL("eduplatform_bot", "5_1700000000_deadbeefdeadbeef")
	want := "https://t.me/eduplatform_bot?start=5_1700000000_deadbeefdeadbeef"
	if got != want {
		t.Fatalf("StartURL = %q, want %q", got, want)
	}
}
