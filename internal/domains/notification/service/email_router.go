package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
	"github.com/KurisuuChan/medcore/internal/infrastructure/email"
)

// ================================================
// EMAIL ROUTER IMPLEMENTATION
// ================================================
// Grounded on delivery_service.go's SendEmail attempt/log/mark-sent shape,
// collapsed to the single priority-based policy the notification core uses.

// RecipientOverride is the single configuration hook consulted once per
// send: it maps the resolved recipient address to the address actually
// used. It applies uniformly to per-notification, aggregated and digest
// sends. The container wires it from SMTP_RECIPIENT_OVERRIDE, which, when
// set, redirects every address to that one address.
type RecipientOverride func(address string) string

type emailRouter struct {
	sender    email.Sender
	users     UserSource
	notifRepo repository.NotificationRepository
	override  RecipientOverride
}

func NewEmailRouter(sender email.Sender, users UserSource, notifRepo repository.NotificationRepository, override RecipientOverride) EmailRouter {
	if override == nil {
		override = func(a string) string { return a }
	}
	return &emailRouter{sender: sender, users: users, notifRepo: notifRepo, override: override}
}

// SendForNotification is mode 1 (per-notification), triggered by the
// Dispatcher when priority <= HIGH && !suppressEmail.
func (r *emailRouter) SendForNotification(ctx context.Context, n *model.Notification) error {
	if !r.sender.Ready() {
		log.Info().Str("notification_id", n.ID.String()).Msg("email router: sender not configured")
		return nil
	}

	user, err := r.users.Email(ctx, n.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", n.UserID.String()).Msg("email router: user lookup failed")
		return fmt.Errorf("user source: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	to := r.override(user.Email)
	subject := subjectFor(n)
	html := singleAlertHTML(n)

	result, err := r.sender.Send(sendCtx, email.Message{To: []string{to}, Subject: subject, HTML: html})
	if err != nil || !result.Success {
		log.Error().Err(err).Str("notification_id", n.ID.String()).Str("reason", result.Error).
			Msg("email router: send failed")
		return nil
	}

	if err := r.notifRepo.SetEmailSent(ctx, n.ID, time.Now()); err != nil {
		log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("email router: mark sent failed")
	}
	return nil
}

func subjectFor(n *model.Notification) string {
	switch n.Priority {
	case model.PriorityCritical:
		return "[CRITICAL] " + n.Title
	case model.PriorityHigh:
		return "[WARNING] " + n.Title
	default:
		return n.Title
	}
}

func singleAlertHTML(n *model.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2><p>%s</p>", n.Title, n.Message)
	if productID, ok := n.Metadata.String(model.MetaProductID); ok {
		fmt.Fprintf(&b, "<p>Product: %s</p>", productID)
	}
	return b.String()
}

// ScanFindings is the Scanner's aggregated result, grouped for the summary
// email's three sections.
type ScanFindings struct {
	OutOfStock     []model.Product
	CriticalLow    []model.Product
	WarningLow     []model.Product
	CriticalExpiry []expiringProduct
	WarningExpiry  []expiringProduct
}

type expiringProduct struct {
	Product     model.Product
	DaysLeft    int
}

func (f ScanFindings) severity() string {
	switch {
	case len(f.OutOfStock) > 0:
		return "CRITICAL"
	case len(f.CriticalLow) > 0 || len(f.CriticalExpiry) > 0:
		return "WARNING"
	default:
		return "INFO"
	}
}

func (f ScanFindings) empty() bool {
	return len(f.OutOfStock) == 0 && len(f.CriticalLow) == 0 && len(f.WarningLow) == 0 &&
		len(f.CriticalExpiry) == 0 && len(f.WarningExpiry) == 0
}

// SendAggregatedSummary is mode 2, used by the Scanner to compose one email
// covering out-of-stock, low-stock (critical+warning), and expiring
// (critical<=7d + warning<=30d) sections.
func (r *emailRouter) SendAggregatedSummary(ctx context.Context, recipient model.User, findings ScanFindings) error {
	if !r.sender.Ready() {
		return nil
	}
	if findings.empty() {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	to := r.override(recipient.Email)
	subject := fmt.Sprintf("[%s] Pharmacy health check summary", findings.severity())
	html := aggregatedSummaryHTML(findings)

	result, err := r.sender.Send(sendCtx, email.Message{To: []string{to}, Subject: subject, HTML: html})
	if err != nil || !result.Success {
		log.Error().Err(err).Str("reason", result.Error).Msg("email router: aggregated send failed")
		return nil
	}
	return nil
}

// SendDigest is the DailyDigestJob's send path: one email per recipient
// grouping today's notifications by category, reusing the aggregated-send
// shape (Ready() check, timeout, logs-only on failure) rather than adding a
// parallel one.
func (r *emailRouter) SendDigest(ctx context.Context, recipient model.User, notifications []model.Notification) error {
	if !r.sender.Ready() || len(notifications) == 0 {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	to := r.override(recipient.Email)
	subject := fmt.Sprintf("Daily summary: %d notification(s)", len(notifications))
	html := digestHTML(notifications)

	result, err := r.sender.Send(sendCtx, email.Message{To: []string{to}, Subject: subject, HTML: html})
	if err != nil || !result.Success {
		log.Error().Err(err).Str("reason", result.Error).Msg("email router: daily digest send failed")
		return nil
	}
	return nil
}

func digestHTML(notifications []model.Notification) string {
	byCategory := make(map[string][]model.Notification)
	order := []string{model.CategoryInventory, model.CategoryExpiry, model.CategorySales, model.CategorySystem, model.CategoryGeneral}
	for _, n := range notifications {
		byCategory[n.Category] = append(byCategory[n.Category], n)
	}

	var b strings.Builder
	for _, category := range order {
		items := byCategory[category]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<h3>%s (%d)</h3><ul>", strings.Title(category), len(items))
		for _, n := range items {
			fmt.Fprintf(&b, "<li>%s</li>", n.Title)
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func aggregatedSummaryHTML(f ScanFindings) string {
	var b strings.Builder

	section := func(title string, products []model.Product) {
		if len(products) == 0 {
			return
		}
		names := make([]string, len(products))
		for i, p := range products {
			names[i] = productLabel(p)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "<h3>%s (%d)</h3><ul>", title, len(products))
		for _, name := range names {
			fmt.Fprintf(&b, "<li>%s</li>", name)
		}
		b.WriteString("</ul>")
	}

	expirySection := func(title string, items []expiringProduct) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "<h3>%s (%d)</h3><ul>", title, len(items))
		for _, it := range items {
			fmt.Fprintf(&b, "<li>%s (%d day(s) left)</li>", productLabel(it.Product), it.DaysLeft)
		}
		b.WriteString("</ul>")
	}

	section("Out of stock", f.OutOfStock)
	section("Critical low stock", f.CriticalLow)
	section("Low stock", f.WarningLow)
	expirySection("Expiring soon (critical)", f.CriticalExpiry)
	expirySection("Expiring soon", f.WarningExpiry)

	return b.String()
}
