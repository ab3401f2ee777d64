package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/utils"
)

// CookieName is the attribution cookie name
const CookieName = "systrack"

// DefaultAttributionWindow is how long a click's referral credit stays valid
const DefaultAttributionWindow = 30 * 24 * time.Hour

// AttributionClaim ties a visitor to the click that referred them. It lives
// only inside the signed cookie value and is never persisted.
type AttributionClaim struct {
	LinkID       uuid.UUID `json:"link_id"`
	InfluencerID uuid.UUID `json:"influencer_id"`
	ClickID      uuid.UUID `json:"click_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// CookieCodec signs and parses attribution cookie values. The value is four
// pipe-delimited fields followed by an HMAC signature after a dot:
// linkId|influencerId|clickId|rfc3339.signature
type CookieCodec struct {
	secret string
	window time.Duration
}

// NewCookieCodec creates a codec with the given signing secret and attribution window
func NewCookieCodec(secret string, window time.Duration) *CookieCodec {
	if window <= 0 {
		window = DefaultAttributionWindow
	}
	return &CookieCodec{secret: secret, window: window}
}

// Window returns the attribution window
func (c *CookieCodec) Window() time.Duration {
	return c.window
}

// Encode builds a signed cookie value for a claim
func (c *CookieCodec) Encode(claim AttributionClaim) string {
	payload := fmt.Sprintf("%s|%s|%s|%s",
		claim.LinkID, claim.InfluencerID, claim.ClickID,
		claim.IssuedAt.UTC().Format(time.RFC3339))
	return payload + "." + utils.SignHMAC(payload, c.secret)
}

// Decode parses a cookie value back into a claim. Malformed values, bad
// signatures and claims older than the attribution window all return nil;
// an absent or stale claim is never an error.
func (c *CookieCodec) Decode(value string) *AttributionClaim {
	dot := strings.LastIndex(value, ".")
	if dot < 0 {
		return nil
	}
	payload, signature := value[:dot], value[dot+1:]
	if !utils.VerifyHMAC(payload, signature, c.secret) {
		return nil
	}

	fields := strings.Split(payload, "|")
	if len(fields) != 4 {
		return nil
	}

	linkID, err := uuid.Parse(fields[0])
	if err != nil {
		return nil
	}
	influencerID, err := uuid.Parse(fields[1])
	if err != nil {
		return nil
	}
	clickID, err := uuid.Parse(fields[2])
	if err != nil {
		return nil
	}
	issuedAt, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return nil
	}

	if time.Since(issuedAt) > c.window {
		return nil
	}

	return &AttributionClaim{
		LinkID:       linkID,
		InfluencerID: influencerID,
		ClickID:      clickID,
		IssuedAt:     issuedAt,
	}
}
