package deeplink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
)

// DefaultMaxAge is how long a token stays verifiable unless the caller
// overrides it.
const DefaultMaxAge = 300 * time.Second

const signatureLength = 16

// Codec creates and verifies signed deep-link tokens of the form
// "{user_id}_{timestamp}_{signature}". The signature is the first 16 hex
// characters of an HMAC-SHA256 over "{user_id}:{timestamp}" keyed by a
// server-wide secret. Tokens are self-contained; there is no server-side
// revocation state.
type Codec struct {
	secret []byte
	clock  platform.Clock
}

func NewCodec(secret string, clock platform.Clock) *Codec {
	if clock == nil {
		clock = platform.SystemClock()
	}
	return &Codec{secret: []byte(secret), clock: clock}
}

// Create issues a token binding the given user id to the current time.
func (c *Codec) Create(userID int64) string {
	ts := c.clock.Now().Unix()
	return fmt.Sprintf("%d_%d_%s", userID, ts, c.sign(userID, ts))
}

// Verify checks a token and returns the embedded user id. All failure modes
// (wrong part count, non-numeric fields, stale timestamp, bad signature)
// collapse into a single ok=false result so callers cannot distinguish them.
// Timestamps ahead of the local clock pass the age check, tolerating skew
// between issuing hosts.
func (c *Codec) Verify(token string, maxAge time.Duration) (int64, bool) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 {
		return 0, false
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}

	if c.clock.Now().Unix()-ts > int64(maxAge.Seconds()) {
		return 0, false
	}

	if !hmac.Equal([]byte(parts[2]), []byte(c.sign(userID, ts))) {
		return 0, false
	}

	return userID, true
}

func (c *Codec) sign(userID, ts int64) string {
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%d:%d", userID, ts)
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// StartURL builds the Telegram deep link that opens the bot with the token as
// its start parameter.
func StartURL(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, token)
}
