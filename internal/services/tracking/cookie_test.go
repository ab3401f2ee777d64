package tracking

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaim(issuedAt time.Time) AttributionClaim {
	return AttributionClaim{
		LinkID:       uuid.New(),
		InfluencerID: uuid.New(),
		ClickID:      uuid.New(),
		IssuedAt:     issuedAt,
	}
}

func TestCookieRoundTrip(t *testing.T) {
	codec := NewCookieCodec("round-trip-secret", DefaultAttributionWindow)
	claim := testClaim(time.Now().Add(-time.Hour))

	decoded := codec.Decode(codec.Encode(claim))
	require.NotNil(t, decoded)
	assert.Equal(t, claim.LinkID, decoded.LinkID)
	assert.Equal(t, claim.InfluencerID, decoded.InfluencerID)
	assert.Equal(t, claim.ClickID, decoded.ClickID)
	assert.WithinDuration(t, claim.IssuedAt, decoded.IssuedAt, time.Second)
}

func TestCookieExpiredClaim(t *testing.T) {
	codec := NewCookieCodec("secret", 24*time.Hour)
	claim := testClaim(time.Now().Add(-25 * time.Hour))

	assert.Nil(t, codec.Decode(codec.Encode(claim)))
}

func TestCookieClaimInsideWindow(t *testing.T) {
	codec := NewCookieCodec("secret", 24*time.Hour)
	claim := testClaim(time.Now().Add(-23 * time.Hour))

	assert.NotNil(t, codec.Decode(codec.Encode(claim)))
}

func TestCookieTamperedPayload(t *testing.T) {
	codec := NewCookieCodec("secret", DefaultAttributionWindow)
	value := codec.Encode(testClaim(time.Now()))

	forged := strings.Replace(value, value[:8], uuid.New().String()[:8], 1)
	assert.Nil(t, codec.Decode(forged))
}

func TestCookieWrongSecret(t *testing.T) {
	signer := NewCookieCodec("secret-a", DefaultAttributionWindow)
	verifier := NewCookieCodec("secret-b", DefaultAttributionWindow)

	assert.Nil(t, verifier.Decode(signer.Encode(testClaim(time.Now()))))
}

func TestCookieMalformedValues(t *testing.T) {
	codec := NewCookieCodec("secret", DefaultAttributionWindow)

	for _, value := range []string{
		"",
		"garbage",
		"no-signature-here|a|b|c",
		"a|b.ZmFrZXNpZw",
	} {
		assert.Nil(t, codec.Decode(value), "value %q must not decode", value)
	}
}
