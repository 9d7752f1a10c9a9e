package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/dedupe"
	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
)

// ================================================
// DISPATCHER IMPLEMENTATION
// ================================================
// Grounded on notification_service.go's SendNotification/CreateNotification
// flow: validate -> dedupe -> persist -> fire-and-forget side effects, with
// the same "log and continue" posture for non-fatal side channels.

type dispatcher struct {
	notifRepo repository.NotificationRepository
	deduper   *dedupe.Deduper
	email     EmailRouter
	bus       RealtimeBus
}

func NewDispatcher(notifRepo repository.NotificationRepository, deduper *dedupe.Deduper, email EmailRouter, bus RealtimeBus) Dispatcher {
	return &dispatcher{notifRepo: notifRepo, deduper: deduper, email: email, bus: bus}
}

var sanitizeReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var htmlEntitySuffixes = []string{"amp;", "lt;", "gt;", "quot;", "#39;"}

// sanitize HTML-escapes user-supplied text. Ampersands that already start a
// known entity are left alone, so sanitize(sanitize(x)) == sanitize(x).
func sanitize(s string) string {
	return sanitizeReplacer.Replace(escapeBareAmpersands(s))
}

func escapeBareAmpersands(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}
		if isEntityAt(s[i+1:]) {
			b.WriteByte('&')
			continue
		}
		b.WriteString("&amp;")
	}
	return b.String()
}

func isEntityAt(rest string) bool {
	for _, suffix := range htmlEntitySuffixes {
		if strings.HasPrefix(rest, suffix) {
			return true
		}
	}
	return false
}

func (d *dispatcher) Create(ctx context.Context, p model.CreateParams) (*model.Notification, error) {
	if p.UserID == uuid.Nil {
		return nil, model.NewValidationError("user_id", "required")
	}
	if strings.TrimSpace(p.Title) == "" || len(p.Title) > 200 {
		return nil, model.NewValidationError("title", "required, max 200 chars")
	}
	if strings.TrimSpace(p.Message) == "" || len(p.Message) > 1000 {
		return nil, model.NewValidationError("message", "required, max 1000 chars")
	}

	typ := p.Type
	if typ == "" {
		typ = model.TypeInfo
	}
	if !model.ValidType(typ) {
		return nil, model.NewValidationError("type", "must be one of error|warning|success|info")
	}

	category := p.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !model.ValidCategory(category) {
		return nil, model.NewValidationError("category", "invalid category")
	}

	priority := p.Priority
	if priority == 0 {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, model.NewValidationError("priority", "must be 1..5")
	}

	title := sanitize(p.Title)
	message := sanitize(p.Message)

	metadata := model.JSONB{}
	for k, v := range p.Metadata {
		metadata[k] = v
	}

	key := dedupe.Key(category, title, metadata)
	cooldown := time.Duration(p.CooldownHours) * time.Hour
	if cooldown <= 0 {
		cooldown = defaultCooldownFor(category, priority)
	}

	if cooldown > 0 {
		if !d.deduper.ShouldSend(ctx, p.UserID, key, cooldown) {
			return nil, nil
		}
	}

	n := &model.Notification{
		UserID:   p.UserID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Priority: priority,
		Category: category,
		Metadata: metadata,
	}

	created, err := d.notifRepo.Insert(ctx, n)
	if err != nil {
		return nil, model.NewStorageError("insert notification", err)
	}

	if created.Priority <= model.PriorityHigh && !created.Metadata.Bool(model.MetaSuppressEmail) {
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := d.email.SendForNotification(sendCtx, created); err != nil {
				log.Error().Err(err).Str("notification_id", created.ID.String()).Msg("dispatcher: email send failed")
			}
		}()
	}

	if d.bus != nil {
		d.bus.Publish(Event{EventType: EventInsert, Row: *created})
	}

	return created, nil
}

// defaultCooldownFor resolves the Dispatcher's default cooldown table when
// the caller omits one. 0 means "no dedup" (e.g. sale-completed notices).
func defaultCooldownFor(category string, priority int) time.Duration {
	switch category {
	case model.CategoryInventory:
		if priority == model.PriorityCritical {
			return dedupe.CooldownCriticalStock
		}
		return dedupe.CooldownLowStock
	case model.CategoryExpiry:
		return dedupe.CooldownExpiry
	case model.CategorySystem:
		return dedupe.CooldownSystemError
	default:
		return 0
	}
}

func (d *dispatcher) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	return d.notifRepo.ListForUser(ctx, userID, filter)
}

func (d *dispatcher) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return d.notifRepo.UnreadCount(ctx, userID)
}

func (d *dispatcher) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	n, err := d.notifRepo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.bus != nil {
		d.bus.Publish(Event{EventType: EventUpdate, Row: *n})
	}
	return n, nil
}

func (d *dispatcher) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return d.notifRepo.MarkAllRead(ctx, userID)
}

func (d *dispatcher) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	n, err := d.notifRepo.Dismiss(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.bus != nil {
		d.bus.Publish(Event{EventType: EventDelete, Row: *n})
	}
	return n, nil
}

func (d *dispatcher) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return d.notifRepo.DismissAll(ctx, userID)
}
