// Package service contains the business logic layer. Services own the
// lifecycle rules (health, rollover, onboarding, wipe, revival) and talk
// to storage through the repository layer and to each other through the
// typed event bus.
package service

import (
	"context"
	"log/slog"

	"github.com/covenant-app/covenant-api/internal/billing"
	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// Services holds all service instances and the event bus that connects
// them.
type Services struct {
	Identity   *IdentityService
	Wipe       *WipeService
	Despair    *DespairService
	Daily      *DailyService
	Onboarding *OnboardingService
	Insurance  *InsuranceService
	Quest      *QuestService
	Reset      *ResetService
	Bus        *events.Bus
}

// NewServices wires all services together. The zero-crossing listener is
// registered here: when identity health reaches zero, a pre-death backup
// is taken while the identity row still exists. The killing operation
// that follows clears content and enters despair but leaves the backup
// in place, so the revival purchase stays possible; the full wipe runs
// only when the user accepts death instead of reviving.
func NewServices(repos *repository.Repositories, cfg *config.Config, logger *slog.Logger) *Services {
	bus := events.New(logger)

	var provider billing.Provider = billing.UnavailableProvider{}
	if cfg.BillingConfigured() {
		provider = billing.NewStripeProvider(cfg.StripeSecretKey, cfg.InsuranceProductID, logger)
	}
	broker := billing.NewBroker(provider, cfg.PurchaseTimeout, logger)

	identitySvc := NewIdentityService(repos, bus, cfg, logger)
	wipeSvc := NewWipeService(repos, bus, logger)
	despairSvc := NewDespairService(repos, wipeSvc, bus, logger)
	dailySvc := NewDailyService(repos, identitySvc, bus, logger)
	onboardingSvc := NewOnboardingService(repos, bus, logger)
	insuranceSvc := NewInsuranceService(repos, identitySvc, provider, broker, cfg, logger)
	questSvc := NewQuestService(repos, identitySvc, cfg, logger)
	resetSvc := NewResetService(repos, logger)

	bus.SubscribeWipeTrigger(func(ev events.WipeTrigger) {
		if _, err := insuranceSvc.CreateBackup(context.Background()); err != nil {
			logger.Error("pre-death backup failed", "error", err)
		}
	})

	return &Services{
		Identity:   identitySvc,
		Wipe:       wipeSvc,
		Despair:    despairSvc,
		Daily:      dailySvc,
		Onboarding: onboardingSvc,
		Insurance:  insuranceSvc,
		Quest:      questSvc,
		Reset:      resetSvc,
		Bus:        bus,
	}
}
