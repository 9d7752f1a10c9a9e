package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
)

// ================================================
// SCANNER IMPLEMENTATION
// ================================================
// Follows a read-compute-cache-log shape, driven by an asynq scheduler cron
// registration for cadence; this periodic catalog scan is new to this repo.

const localDebounce = 15 * time.Minute

// ScanLock guards runHealthChecks across replicas so two processes racing
// the same window don't both pass the durable debounce check.
type ScanLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type scanner struct {
	products ProductSource
	users    UserSource
	settings SettingsSource
	schedule repository.ScanScheduleRepository
	dispatch Dispatcher
	email    EmailRouter
	lock     ScanLock

	mu                  sync.Mutex
	lastHealthCheckRun  time.Time
	lastLowStockCheck   time.Time
	lastExpiringCheck   time.Time
}

func NewScanner(products ProductSource, users UserSource, settings SettingsSource, schedule repository.ScanScheduleRepository, dispatch Dispatcher, email EmailRouter, lock ScanLock) Scanner {
	return &scanner{
		products: products,
		users:    users,
		settings: settings,
		schedule: schedule,
		dispatch: dispatch,
		email:    email,
		lock:     lock,
	}
}

func (s *scanner) RunHealthChecks(ctx context.Context, force bool) model.ScanResult {
	if !force {
		s.mu.Lock()
		notFirstRun := !s.lastHealthCheckRun.IsZero()
		sinceLocal := time.Since(s.lastHealthCheckRun)
		s.mu.Unlock()
		if notFirstRun && sinceLocal < localDebounce {
			return model.ScanResult{Skipped: true, Reason: "local debounce"}
		}

		shouldRun, err := s.schedule.ShouldRun(ctx, model.CheckTypeAll, localDebounce)
		if err != nil {
			log.Error().Err(err).Msg("scanner: durable debounce check failed, proceeding")
		} else if !shouldRun {
			return model.ScanResult{Skipped: true, Reason: "durable debounce"}
		}

		if s.lock != nil {
			acquired, err := s.lock.Acquire(ctx, "scanner:health-check:lock", localDebounce)
			if err != nil {
				log.Error().Err(err).Msg("scanner: lock acquire failed, proceeding uncoordinated")
			} else if !acquired {
				return model.ScanResult{Skipped: true, Reason: "another instance is running"}
			}
		}
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scanner: settings source unavailable, using defaults")
		settings = model.DefaultSettings()
	}

	user, err := s.users.PrimaryNotificationUser(ctx)
	if err != nil || user == nil {
		if err != nil {
			log.Error().Err(err).Msg("scanner: user source unavailable")
		}
		return model.ScanResult{Skipped: true, Reason: "no primary notification user"}
	}

	s.mu.Lock()
	runLowStock := force || time.Since(s.lastLowStockCheck) >= time.Duration(settings.LowStockCheckIntervalMin)*time.Minute
	runExpiring := force || time.Since(s.lastExpiringCheck) >= time.Duration(settings.ExpiringCheckIntervalMin)*time.Minute
	s.mu.Unlock()
	// Out-of-stock always runs, regardless of its configured interval.
	runOutOfStock := true

	type subCheck struct {
		name string
		fn   func(context.Context, uuid.UUID) (int, ScanFindings, error)
	}
	var checks []subCheck
	if runLowStock {
		checks = append(checks, subCheck{model.CheckTypeLowStock, s.checkLowStock})
	}
	if runOutOfStock {
		checks = append(checks, subCheck{model.CheckTypeOutOfStock, s.checkOutOfStock})
	}
	if runExpiring {
		checks = append(checks, subCheck{model.CheckTypeExpiring, s.checkExpiring})
	}

	type outcome struct {
		name     string
		count    int
		findings ScanFindings
		err      error
	}
	outcomes := make(chan outcome, len(checks))
	var wg sync.WaitGroup

	for _, c := range checks {
		wg.Add(1)
		go func(c subCheck) {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			count, findings, err := c.fn(subCtx, user.ID)
			outcomes <- outcome{name: c.name, count: count, findings: findings, err: err}
		}(c)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := model.ScanResult{}
	findings := ScanFindings{}
	var firstErr error

	for o := range outcomes {
		if o.err != nil {
			log.Error().Err(o.err).Str("check", o.name).Msg("scanner: sub-check failed")
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		switch o.name {
		case model.CheckTypeLowStock:
			result.LowStockCount = o.count
			findings.CriticalLow = o.findings.CriticalLow
			findings.WarningLow = o.findings.WarningLow
		case model.CheckTypeOutOfStock:
			result.OutOfStockCount = o.count
			findings.OutOfStock = o.findings.OutOfStock
		case model.CheckTypeExpiring:
			result.ExpiringCount = o.count
			findings.CriticalExpiry = o.findings.CriticalExpiry
			findings.WarningExpiry = o.findings.WarningExpiry
		}
	}

	result.TotalNotifications = result.LowStockCount + result.OutOfStockCount + result.ExpiringCount

	if settings.EmailAlertsEnabled && !findings.empty() {
		result.EmailAttempted = true
		if err := s.email.SendAggregatedSummary(ctx, *user, findings); err != nil {
			log.Error().Err(err).Msg("scanner: aggregated summary send failed")
		}
	}

	now := time.Now()
	s.mu.Lock()
	if runLowStock {
		s.lastLowStockCheck = now
	}
	if runExpiring {
		s.lastExpiringCheck = now
	}
	s.lastHealthCheckRun = now
	s.mu.Unlock()

	var recordErr error
	if firstErr != nil {
		recordErr = firstErr
	}
	if err := s.schedule.RecordRun(ctx, model.CheckTypeAll, result.TotalNotifications, recordErr); err != nil {
		log.Error().Err(err).Msg("scanner: failed to record scan schedule")
	}

	if firstErr != nil {
		result.Error = firstErr.Error()
		if _, err := s.dispatch.NotifySystemError(ctx, user.ID, "one or more health checks failed", "scanner_subcheck"); err != nil {
			log.Error().Err(err).Msg("scanner: notifySystemError failed")
		}
	}

	return result
}

// effectiveReorder applies the fallback reorder-level formula when a
// product carries no explicit reorder level: 20% of current stock,
// floored at 5 units.
func effectiveReorder(p model.Product) int {
	if p.ReorderLevel > 0 {
		return p.ReorderLevel
	}
	calc := int(math.Floor(float64(p.StockInPieces) * 0.2))
	if calc < 5 {
		return 5
	}
	return calc
}

// criticalThreshold is half the reorder level, floored at 5 (or at the
// reorder level itself when that is already below 5).
func criticalThreshold(reorder int) int {
	half := int(math.Floor(float64(reorder) * 0.5))
	floor := 5
	if reorder < floor {
		floor = reorder
	}
	if half < floor {
		return floor
	}
	return half
}

func (s *scanner) checkLowStock(ctx context.Context, userID uuid.UUID) (int, ScanFindings, error) {
	products, err := s.products.ListActive(ctx, ProductFilter{InStockOnly: true})
	if err != nil {
		return 0, ScanFindings{}, err
	}

	findings := ScanFindings{}
	count := 0
	for _, p := range products {
		reorder := effectiveReorder(p)
		if p.StockInPieces <= 0 || p.StockInPieces > reorder {
			continue
		}
		critical := criticalThreshold(reorder)
		count++
		if p.StockInPieces <= critical {
			findings.CriticalLow = append(findings.CriticalLow, p)
			if _, err := s.dispatch.NotifyCriticalStock(ctx, userID, p); err != nil {
				log.Error().Err(err).Str("product_id", p.ID).Msg("scanner: notifyCriticalStock failed")
			}
		} else {
			findings.WarningLow = append(findings.WarningLow, p)
			if _, err := s.dispatch.NotifyLowStock(ctx, userID, p); err != nil {
				log.Error().Err(err).Str("product_id", p.ID).Msg("scanner: notifyLowStock failed")
			}
		}
	}
	return count, findings, nil
}

func (s *scanner) checkOutOfStock(ctx context.Context, userID uuid.UUID) (int, ScanFindings, error) {
	products, err := s.products.ListActive(ctx, ProductFilter{OutOfStockOnly: true})
	if err != nil {
		return 0, ScanFindings{}, err
	}

	findings := ScanFindings{}
	for _, p := range products {
		if p.StockInPieces > 0 {
			continue
		}
		findings.OutOfStock = append(findings.OutOfStock, p)
		if _, err := s.dispatch.NotifyOutOfStock(ctx, userID, p); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("scanner: notifyOutOfStock failed")
		}
	}
	return len(findings.OutOfStock), findings, nil
}

const expiryWarningWindowDays = 30
const expiryCriticalWindowDays = 7

func (s *scanner) checkExpiring(ctx context.Context, userID uuid.UUID) (int, ScanFindings, error) {
	products, err := s.products.ListActive(ctx, ProductFilter{ExpiringWithin: expiryWarningWindowDays})
	if err != nil {
		return 0, ScanFindings{}, err
	}

	findings := ScanFindings{}
	now := time.Now()
	count := 0
	for _, p := range products {
		if p.ExpiryDate == nil {
			continue
		}
		daysLeft := daysRemaining(now, *p.ExpiryDate)
		if daysLeft > expiryWarningWindowDays {
			continue
		}
		count++
		item := expiringProduct{Product: p, DaysLeft: daysLeft}
		if daysLeft <= expiryCriticalWindowDays {
			findings.CriticalExpiry = append(findings.CriticalExpiry, item)
		} else {
			findings.WarningExpiry = append(findings.WarningExpiry, item)
		}
		if _, err := s.dispatch.NotifyExpiringSoon(ctx, userID, p, daysLeft); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("scanner: notifyExpiringSoon failed")
		}
	}
	return count, findings, nil
}

// daysRemaining rounds up to the next whole day so a product expiring
// in 6.1 days is still treated as 7 days out, not 6.
func daysRemaining(now, expiry time.Time) int {
	d := expiry.Sub(now)
	return int(math.Ceil(d.Hours() / 24))
}
