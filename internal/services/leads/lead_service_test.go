package leads

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/services/campaigns"
	"github.com/getyourshare/backend/internal/services/escrow"
	"github.com/getyourshare/backend/internal/services/links"
	"github.com/getyourshare/backend/internal/services/notify"
	"github.com/getyourshare/backend/internal/services/tracking"
)

// recordingNotifier captures notifier calls for assertions
type recordingNotifier struct {
	mu          sync.Mutex
	newLeads    int
	lowBalances int
	depletions  int
}

func (n *recordingNotifier) NotifyNewLead(*models.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newLeads++
	return nil
}

func (n *recordingNotifier) NotifyLowBalance(*models.Deposit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowBalances++
	return nil
}

func (n *recordingNotifier) NotifyDepletion(*models.Deposit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.depletions++
	return nil
}

var _ notify.Notifier = (*recordingNotifier)(nil)

type testEnv struct {
	db        *gorm.DB
	escrow    *escrow.EscrowService
	campaigns *campaigns.CampaignService
	tracker   *tracking.TrackingService
	leads     *LeadService
	notifier  *recordingNotifier
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.TrackingLink{}, &models.ClickEvent{},
		&models.CampaignSettings{}, &models.Agreement{},
		&models.Deposit{}, &models.EscrowEntry{},
		&models.Lead{}, &models.ValidationRecord{},
	))

	escrowSvc := escrow.NewEscrowService(db)
	campaignSvc := campaigns.NewCampaignService(db)
	linkSvc := links.NewLinkService(db, "http://localhost:8080")
	codec := tracking.NewCookieCodec("test-secret", tracking.DefaultAttributionWindow)
	trackingSvc := tracking.NewTrackingService(db, linkSvc, codec, nil)
	notifier := &recordingNotifier{}

	return &testEnv{
		db:        db,
		escrow:    escrowSvc,
		campaigns: campaignSvc,
		tracker:   trackingSvc,
		leads:     NewLeadService(db, escrowSvc, campaignSvc, trackingSvc, notifier),
		notifier:  notifier,
	}
}

func (e *testEnv) fund(t *testing.T, merchantID uuid.UUID, amount, alertThreshold float64) *models.Deposit {
	deposit, err := e.escrow.Fund(merchantID, nil, amount, alertThreshold)
	require.NoError(t, err)
	return deposit
}

func (e *testEnv) deposit(t *testing.T, id uuid.UUID) *models.Deposit {
	deposit, err := e.escrow.GetDeposit(id)
	require.NoError(t, err)
	return deposit
}

func basicInput(merchantID uuid.UUID, estimatedValue float64) CreateLeadInput {
	promoterID := uuid.New()
	return CreateLeadInput{
		CampaignID:     uuid.New(),
		MerchantID:     merchantID,
		PromoterID:     &promoterID,
		EstimatedValue: estimatedValue,
		Source:         "web",
	}
}

func TestCreateLeadReservesCommission(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	// 1000 is at the default threshold, so the fixed tier applies
	lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	require.NoError(t, err)

	assert.Equal(t, models.LeadStatusPending, lead.Status)
	assert.Equal(t, 80.0, lead.CommissionAmount)
	assert.Equal(t, models.CommissionTypeFixed, lead.CommissionType)
	assert.Equal(t, 24.0, lead.PromoterCommission) // default 30% split

	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 1000.0, got.CurrentBalance)
	assert.Equal(t, 80.0, got.ReservedAmount)

	assert.Equal(t, 1, env.notifier.newLeads)

	history, err := env.leads.GetValidationHistory(lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.LeadStatusPending, history[0].NewStatus)
}

func TestCreateLeadPercentageTier(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	lead, err := env.leads.CreateLead(basicInput(merchantID, 500))
	require.NoError(t, err)

	assert.Equal(t, 50.0, lead.CommissionAmount)
	assert.Equal(t, models.CommissionTypePercentage, lead.CommissionType)
}

func TestCreateLeadBelowMinimumValue(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	_, err := env.leads.CreateLead(basicInput(merchantID, 10))
	assert.True(t, apperrors.IsValidation(err))

	// Nothing reserved, nothing persisted
	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 0.0, got.ReservedAmount)

	var count int64
	env.db.Model(&models.Lead{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateLeadRequiresExactlyOneReferrer(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	input := basicInput(merchantID, 500)
	salesRepID := uuid.New()
	input.SalesRepID = &salesRepID
	_, err := env.leads.CreateLead(input)
	assert.True(t, apperrors.IsValidation(err))

	input = basicInput(merchantID, 500)
	input.PromoterID = nil
	_, err = env.leads.CreateLead(input)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateLeadSalesRepCarriesNoPromoterShare(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	input := basicInput(merchantID, 1000)
	input.PromoterID = nil
	salesRepID := uuid.New()
	input.SalesRepID = &salesRepID

	lead, err := env.leads.CreateLead(input)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lead.PromoterCommission)
}

func TestCreateLeadInsufficientFundsCreatesNothing(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 30, 0)

	_, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	assert.True(t, apperrors.IsInsufficientFunds(err))

	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 0.0, got.ReservedAmount)

	var count int64
	env.db.Model(&models.Lead{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateLeadNoDeposit(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.leads.CreateLead(basicInput(uuid.New(), 500))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateLeadUsesAgreementSplit(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	input := basicInput(merchantID, 1000)
	require.NoError(t, env.db.Create(&models.Agreement{
		MerchantID:      merchantID,
		PromoterID:      *input.PromoterID,
		CommissionSplit: 50,
	}).Error)

	lead, err := env.leads.CreateLead(input)
	require.NoError(t, err)
	assert.Equal(t, 40.0, lead.PromoterCommission)
}

func TestCreateLeadRejectedWhenCampaignPaused(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	input := basicInput(merchantID, 500)
	_, err := env.campaigns.UpsertSettings(campaigns.UpsertSettingsInput{
		CampaignID:          input.CampaignID,
		CommissionThreshold: 800,
		PercentageRate:      10,
		FixedAmount:         80,
	})
	require.NoError(t, err)
	require.NoError(t, env.campaigns.Pause(input.CampaignID))

	_, err = env.leads.CreateLead(input)
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateLeadRejectedReleasesReservation(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	require.NoError(t, err)

	result, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:          lead.ID,
		NewStatus:       models.LeadStatusRejected,
		ChangedBy:       uuid.New(),
		RejectionReason: "duplicate contact",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusRejected, result.Lead.Status)

	// Released, not deducted
	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 1000.0, got.CurrentBalance)
	assert.Equal(t, 0.0, got.ReservedAmount)
}

func TestValidateLeadValidatedDeducts(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	require.NoError(t, err)

	score := 8
	result, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:       lead.ID,
		NewStatus:    models.LeadStatusValidated,
		ChangedBy:    uuid.New(),
		QualityScore: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusValidated, result.Lead.Status)
	require.NotNil(t, result.Lead.ValidatedAt)

	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 920.0, got.CurrentBalance)
	assert.Equal(t, 0.0, got.ReservedAmount)

	history, err := env.leads.GetValidationHistory(lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.LeadStatusValidated, history[1].NewStatus)
	assert.Equal(t, models.LeadStatusPending, history[1].PreviousStatus)
}

func TestValidateLeadConflictOnTerminalLead(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	require.NoError(t, err)

	_, err = env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    lead.ID,
		NewStatus: models.LeadStatusValidated,
	})
	require.NoError(t, err)

	_, err = env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    lead.ID,
		NewStatus: models.LeadStatusRejected,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestValidateLeadRejectsInvalidTargets(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    uuid.New(),
		NewStatus: models.LeadStatusPending,
	})
	assert.True(t, apperrors.IsValidation(err))

	score := 15
	_, err = env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:       uuid.New(),
		NewStatus:    models.LeadStatusValidated,
		QualityScore: &score,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    uuid.New(),
		NewStatus: models.LeadStatusValidated,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReservedEqualsSumOfPendingCommissions(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	var leadIDs []uuid.UUID
	for i := 0; i < 4; i++ {
		lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
		require.NoError(t, err)
		leadIDs = append(leadIDs, lead.ID)
	}

	var pendingSum float64
	env.db.Model(&models.Lead{}).
		Where("deposit_id = ? AND status = ?", deposit.ID, models.LeadStatusPending).
		Select("COALESCE(SUM(commission_amount), 0)").Scan(&pendingSum)
	got := env.deposit(t, deposit.ID)
	assert.Equal(t, pendingSum, got.ReservedAmount)
	assert.Equal(t, 320.0, got.ReservedAmount)

	_, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    leadIDs[0],
		NewStatus: models.LeadStatusConverted,
	})
	require.NoError(t, err)
	_, err = env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    leadIDs[1],
		NewStatus: models.LeadStatusLost,
	})
	require.NoError(t, err)

	env.db.Model(&models.Lead{}).
		Where("deposit_id = ? AND status = ?", deposit.ID, models.LeadStatusPending).
		Select("COALESCE(SUM(commission_amount), 0)").Scan(&pendingSum)
	got = env.deposit(t, deposit.ID)
	assert.Equal(t, pendingSum, got.ReservedAmount)
	assert.Equal(t, 160.0, got.ReservedAmount)
}

func TestConcurrentValidationsSettleOnce(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	deposit := env.fund(t, merchantID, 1000, 0)

	lead, err := env.leads.CreateLead(basicInput(merchantID, 1000))
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
				LeadID:    lead.ID,
				NewStatus: models.LeadStatusValidated,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	got := env.deposit(t, deposit.ID)
	assert.Equal(t, 920.0, got.CurrentBalance)
	assert.Equal(t, 0.0, got.ReservedAmount)
}

func TestDepletionPausesCampaignAndNotifies(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 80, 0)

	input := basicInput(merchantID, 1000)
	_, err := env.campaigns.UpsertSettings(campaigns.UpsertSettingsInput{
		CampaignID:          input.CampaignID,
		CommissionThreshold: 800,
		PercentageRate:      10,
		FixedAmount:         80,
		AutoStopOnDepletion: true,
	})
	require.NoError(t, err)

	lead, err := env.leads.CreateLead(input)
	require.NoError(t, err)

	result, err := env.leads.ValidateLead(context.Background(), ValidateLeadInput{
		LeadID:    lead.ID,
		NewStatus: models.LeadStatusValidated,
	})
	require.NoError(t, err)
	assert.True(t, result.Threshold.Depleted)

	settings, err := env.campaigns.GetSettings(input.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, settings.Status)

	deposit, err := env.escrow.FindActiveDeposit(merchantID, nil)
	assert.True(t, apperrors.IsNotFound(err))
	_ = deposit

	assert.Equal(t, 1, env.notifier.depletions)
}

func TestAttributedLeadCreditsLinkConversion(t *testing.T) {
	env := setupTestEnv(t)
	merchantID := uuid.New()
	env.fund(t, merchantID, 1000, 0)

	promoterID := uuid.New()
	created, err := links.NewLinkService(env.db, "http://localhost:8080").CreateLink(links.CreateLinkInput{
		InfluencerID:   promoterID,
		ProductID:      uuid.New(),
		DestinationURL: "https://shop.example.com/product",
	})
	require.NoError(t, err)

	input := basicInput(merchantID, 1000)
	input.PromoterID = &promoterID
	input.Attribution = &tracking.AttributionClaim{
		LinkID:       created.LinkID,
		InfluencerID: promoterID,
		ClickID:      uuid.New(),
		IssuedAt:     time.Now().Add(-time.Hour),
	}

	_, err = env.leads.CreateLead(input)
	require.NoError(t, err)

	var link models.TrackingLink
	require.NoError(t, env.db.First(&link, "id = ?", created.LinkID).Error)
	assert.Equal(t, int64(1), link.ConversionCount)
	assert.Equal(t, 1000.0, link.RevenueTotal)
}
