package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/covenant-app/covenant-api/internal/billing"
	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// PurchaseFlowResult is the outcome of the end-to-end revival purchase.
type PurchaseFlowResult struct {
	Success       bool   `json:"success"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	IHAfter       int    `json:"ih_after,omitempty"`
}

// InsuranceService owns the one-time paid revival: the pre-death backup,
// the eligibility gates, the purchase flow, and the restore that brings
// the user back at the configured revival health.
type InsuranceService struct {
	repos       *repository.Repositories
	identitySvc *IdentityService
	provider    billing.Provider
	broker      *billing.Broker
	cfg         *config.Config
	logger      *slog.Logger
}

// NewInsuranceService creates a new insurance service.
func NewInsuranceService(repos *repository.Repositories, identitySvc *IdentityService, provider billing.Provider, broker *billing.Broker, cfg *config.Config, logger *slog.Logger) *InsuranceService {
	return &InsuranceService{
		repos:       repos,
		identitySvc: identitySvc,
		provider:    provider,
		broker:      broker,
		cfg:         cfg,
		logger:      logger.With("component", "insurance"),
	}
}

// CreateBackup snapshots the current identity before a destructive
// sequence. It reports whether there was anything to back up; an absent
// identity writes nothing and is not an error.
func (s *InsuranceService) CreateBackup(ctx context.Context) (bool, error) {
	identity, err := s.repos.Identity.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read identity for backup: %w", err)
	}
	if identity == nil {
		return false, nil
	}

	err = s.repos.Backup.Upsert(ctx, &models.IdentityBackup{
		AntiVision:        identity.AntiVision,
		IdentityStatement: identity.IdentityStatement,
		OneYearMission:    identity.OneYearMission,
		OriginalIH:        identity.IdentityHealth,
		BackedUpAt:        time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to write backup: %w", err)
	}

	s.logger.Info("identity backup created", "original_ih", identity.IdentityHealth)
	return true, nil
}

// CheckEligibility evaluates the revival gates in order and returns the
// first failure: feature flag, one-per-life consumption, billing backend
// reachability, backup presence. Ineligibility is a value, never an error.
func (s *InsuranceService) CheckEligibility(ctx context.Context) (*Eligibility, error) {
	if !s.cfg.InsuranceEnabled {
		return &Eligibility{Eligible: false, Reason: ReasonFeatureDisabled}, nil
	}

	appState, err := s.repos.AppState.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read app state: %w", err)
	}
	if appState.HasUsedInsurance {
		return &Eligibility{Eligible: false, Reason: ReasonAlreadyRevived}, nil
	}

	if !s.provider.Initialize(ctx) {
		return &Eligibility{Eligible: false, Reason: ReasonIAPUnavailable}, nil
	}

	backup, err := s.repos.Backup.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	if backup == nil {
		return &Eligibility{Eligible: false, Reason: ReasonBackupFailed}, nil
	}

	return &Eligibility{Eligible: true}, nil
}

// GetProduct returns the revival offer from the billing backend, or nil
// when unavailable.
func (s *InsuranceService) GetProduct(ctx context.Context) *billing.Product {
	return s.provider.GetProduct(ctx)
}

// PurchaseRevival runs the full flow: eligibility, purchase through the
// pending slot, transaction finish, restore, and purchase bookkeeping.
// A restore failure after a successful charge reports backup_failed and
// leaves the store untouched.
func (s *InsuranceService) PurchaseRevival(ctx context.Context) (*PurchaseFlowResult, error) {
	eligibility, err := s.CheckEligibility(ctx)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return &PurchaseFlowResult{Success: false, Reason: eligibility.Reason}, nil
	}

	product := s.provider.GetProduct(ctx)
	if product == nil {
		return &PurchaseFlowResult{Success: false, Reason: ReasonIAPUnavailable}, nil
	}

	ihBefore := s.identitySvc.CachedHealth()

	purchase := s.broker.Purchase(ctx)
	if !purchase.Success {
		s.logger.Warn("revival purchase failed", "error", purchase.Error)
		return &PurchaseFlowResult{Success: false, Error: purchase.Error}, nil
	}

	if err := s.provider.FinishTransaction(ctx, purchase.TransactionID); err != nil {
		// The charge went through; log and carry on with the restore.
		s.logger.Error("failed to finish transaction", "transaction_id", purchase.TransactionID, "error", err)
	}

	// The purchase record lands in the same transaction as the restore so
	// a paid revival can never be missing from the history.
	restored, err := s.restore(ctx, &models.InsurancePurchase{
		ID:            ulid.Make().String(),
		TransactionID: purchase.TransactionID,
		ProductID:     product.ProductID,
		PriceAmount:   product.PriceAmount,
		PriceCurrency: product.Currency,
		PurchasedAt:   time.Now(),
		IHBefore:      ihBefore,
		IHAfter:       s.cfg.RestoreRevivalIH,
	})
	if err != nil {
		return nil, err
	}
	if !restored {
		s.logger.Error("restore failed after successful purchase", "transaction_id", purchase.TransactionID)
		return &PurchaseFlowResult{Success: false, Reason: ReasonBackupFailed, TransactionID: purchase.TransactionID}, nil
	}

	return &PurchaseFlowResult{
		Success:       true,
		TransactionID: purchase.TransactionID,
		IHAfter:       s.cfg.RestoreRevivalIH,
	}, nil
}

// ApplyInsurance restores the identity from the backup snapshot in one
// transaction: the identity comes back at the configured revival health,
// the backup is consumed, the insurance flag is marked used, and the app
// returns to active. A missing backup returns false with no side effects.
func (s *InsuranceService) ApplyInsurance(ctx context.Context) (bool, error) {
	return s.restore(ctx, nil)
}

// restore runs the restore transaction. A non-nil purchase is stamped
// with the current life number and recorded atomically with the restore.
func (s *InsuranceService) restore(ctx context.Context, purchase *models.InsurancePurchase) (bool, error) {
	now := time.Now()
	restored := false

	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		backup, err := tx.Backup.Get(ctx)
		if err != nil {
			return err
		}
		if backup == nil {
			return nil
		}

		if err := tx.Identity.Create(ctx, &models.Identity{
			AntiVision:        backup.AntiVision,
			IdentityStatement: backup.IdentityStatement,
			OneYearMission:    backup.OneYearMission,
			IdentityHealth:    s.cfg.RestoreRevivalIH,
			CreatedAt:         now,
			UpdatedAt:         now,
		}); err != nil {
			return err
		}
		if err := tx.Backup.Delete(ctx); err != nil {
			return err
		}
		if _, err := tx.DailyState.InitIfAbsent(ctx, now.Format("2006-01-02")); err != nil {
			return err
		}
		if err := tx.AppState.SetInsuranceUsed(ctx, true); err != nil {
			return err
		}
		if err := tx.AppState.SetState(ctx, models.AppStateActive); err != nil {
			return err
		}

		if purchase != nil {
			appState, err := tx.AppState.Get(ctx)
			if err != nil {
				return err
			}
			purchase.LifeNumber = appState.LifeNumber
			if err := tx.Insurance.RecordPurchase(ctx, purchase); err != nil {
				return err
			}
		}

		restored = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply insurance: %w", err)
	}
	if !restored {
		return false, nil
	}

	s.identitySvc.NoteRevival(s.cfg.RestoreRevivalIH)
	s.logger.Info("identity restored from backup", "revival_ih", s.cfg.RestoreRevivalIH)
	return true, nil
}

// PurchaseHistory returns all recorded revival purchases, most recent
// first.
func (s *InsuranceService) PurchaseHistory(ctx context.Context) ([]*models.InsurancePurchase, error) {
	return s.repos.Insurance.ListPurchases(ctx)
}
