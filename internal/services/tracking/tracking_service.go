package tracking

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/services/links"
)

// linkCacheTTL bounds how long a resolved link stays in the redirect cache
const linkCacheTTL = 5 * time.Minute

// TrackingService records clicks and issues attribution claims
type TrackingService struct {
	db    *gorm.DB
	links *links.LinkService
	codec *CookieCodec
	cache *redis.Client
}

// NewTrackingService creates a new tracking service. cache may be nil; the
// redirect path then resolves straight from the store.
func NewTrackingService(db *gorm.DB, linkService *links.LinkService, codec *CookieCodec, cache *redis.Client) *TrackingService {
	return &TrackingService{
		db:    db,
		links: linkService,
		codec: codec,
		cache: cache,
	}
}

// Codec exposes the cookie codec for the HTTP layer
func (s *TrackingService) Codec() *CookieCodec {
	return s.codec
}

// ClickMeta carries request metadata for a click event
type ClickMeta struct {
	VisitorIP string
	UserAgent string
	Referrer  string
}

// ClickResult is the outcome of recording a click
type ClickResult struct {
	DestinationURL string
	CookieValue    string
	ClickID        uuid.UUID
}

// RecordClick resolves a short code, appends the click event, bumps the
// link's click counter atomically at the store and issues a fresh
// attribution claim. Unknown or disabled codes return NotFoundError and the
// caller must not redirect.
func (s *TrackingService) RecordClick(ctx context.Context, shortCode string, meta ClickMeta) (*ClickResult, error) {
	link, err := s.resolveCached(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	click := models.ClickEvent{
		LinkID:    link.ID,
		VisitorIP: meta.VisitorIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		ClickedAt: time.Now(),
	}
	if err := s.db.Create(&click).Error; err != nil {
		return nil, apperrors.NewStoreError("record click", err)
	}

	// Counter increment happens at the store; read-increment-write would
	// lose updates under concurrent clicks.
	if err := s.db.Model(&models.TrackingLink{}).
		Where("id = ?", link.ID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1)).Error; err != nil {
		return nil, apperrors.NewStoreError("increment click count", err)
	}

	claim := AttributionClaim{
		LinkID:       link.ID,
		InfluencerID: link.InfluencerID,
		ClickID:      click.ID,
		IssuedAt:     click.ClickedAt,
	}

	return &ClickResult{
		DestinationURL: link.DestinationURL,
		CookieValue:    s.codec.Encode(claim),
		ClickID:        click.ID,
	}, nil
}

// ReadAttribution parses a cookie value into a claim. Returns nil for
// malformed, tampered or expired values.
func (s *TrackingService) ReadAttribution(cookieValue string) *AttributionClaim {
	return s.codec.Decode(cookieValue)
}

// RecordConversion atomically credits a conversion and its revenue to a link
func (s *TrackingService) RecordConversion(tx *gorm.DB, linkID uuid.UUID, revenue float64) error {
	res := tx.Model(&models.TrackingLink{}).
		Where("id = ?", linkID).
		UpdateColumns(map[string]interface{}{
			"conversion_count": gorm.Expr("conversion_count + ?", 1),
			"revenue_total":    gorm.Expr("revenue_total + ?", revenue),
		})
	if res.Error != nil {
		return apperrors.NewStoreError("record conversion", res.Error)
	}
	return nil
}

// LinkStats aggregates click and conversion figures for a link
type LinkStats struct {
	LinkID         uuid.UUID `json:"link_id"`
	ClicksTotal    int64     `json:"clicks_total"`
	ClicksUnique   int64     `json:"clicks_unique"`
	Conversions    int64     `json:"conversions"`
	ConversionRate float64   `json:"conversion_rate"`
	Revenue        float64   `json:"revenue"`
}

// GetLinkStats returns the aggregates for a link. Unique clicks count
// distinct visitor IPs.
func (s *TrackingService) GetLinkStats(linkID uuid.UUID) (*LinkStats, error) {
	link, err := s.links.GetLink(linkID)
	if err != nil {
		return nil, err
	}

	var unique int64
	if err := s.db.Model(&models.ClickEvent{}).
		Where("link_id = ?", linkID).
		Distinct("visitor_ip").Count(&unique).Error; err != nil {
		return nil, apperrors.NewStoreError("link stats", err)
	}

	stats := &LinkStats{
		LinkID:       link.ID,
		ClicksTotal:  link.ClickCount,
		ClicksUnique: unique,
		Conversions:  link.ConversionCount,
		Revenue:      link.RevenueTotal,
	}
	if link.ClickCount > 0 {
		stats.ConversionRate = float64(link.ConversionCount) / float64(link.ClickCount)
	}
	return stats, nil
}

// InvalidateLink drops a short code from the redirect cache, used after an
// administrative disable.
func (s *TrackingService) InvalidateLink(ctx context.Context, shortCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, linkCacheKey(shortCode)).Err(); err != nil {
		log.Printf("Warning: failed to invalidate link cache for %s: %v", shortCode, err)
	}
}

// resolveCached resolves a short code through the Redis read-through cache
// when one is configured. Cache failures fall back to the store.
func (s *TrackingService) resolveCached(ctx context.Context, shortCode string) (*models.TrackingLink, error) {
	if s.cache == nil {
		return s.links.Resolve(shortCode)
	}

	key := linkCacheKey(shortCode)
	if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
		var link models.TrackingLink
		if err := json.Unmarshal([]byte(raw), &link); err == nil && link.Status == models.LinkStatusActive {
			return &link, nil
		}
	}

	link, err := s.links.Resolve(shortCode)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(link); err == nil {
		if err := s.cache.Set(ctx, key, raw, linkCacheTTL).Err(); err != nil {
			log.Printf("Warning: failed to cache link %s: %v", shortCode, err)
		}
	}
	return link, nil
}

func linkCacheKey(shortCode string) string {
	return "tracking:link:" + shortCode
}
