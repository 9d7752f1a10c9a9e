package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// Helper wrappers with fixed titles, priorities, categories per the
// notification core's convenience-wrapper table. The Scanner resolves the
// primary notification user and passes it in; the Dispatcher itself has no
// opinion on who the target user is.

func productLabel(p model.Product) string {
	if p.BrandName != "" {
		return p.BrandName
	}
	return p.GenericName
}

func (d *dispatcher) NotifyLowStock(ctx context.Context, userID uuid.UUID, p model.Product) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:   userID,
		Title:    "Low stock: " + productLabel(p),
		Message:  fmt.Sprintf("%s is running low (%d in stock, reorder level %d).", productLabel(p), p.StockInPieces, p.ReorderLevel),
		Type:     model.TypeWarning,
		Priority: model.PriorityHigh,
		Category: model.CategoryInventory,
		Metadata: map[string]interface{}{model.MetaProductID: p.ID, model.MetaSuppressEmail: true},
	})
}

func (d *dispatcher) NotifyCriticalStock(ctx context.Context, userID uuid.UUID, p model.Product) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:        userID,
		Title:         "Critical stock: " + productLabel(p),
		Message:       fmt.Sprintf("%s is critically low (%d in stock).", productLabel(p), p.StockInPieces),
		Type:          model.TypeError,
		Priority:      model.PriorityCritical,
		Category:      model.CategoryInventory,
		CooldownHours: 6,
		Metadata:      map[string]interface{}{model.MetaProductID: p.ID, model.MetaSuppressEmail: true},
	})
}

func (d *dispatcher) NotifyOutOfStock(ctx context.Context, userID uuid.UUID, p model.Product) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:        userID,
		Title:         "Out of stock: " + productLabel(p),
		Message:       fmt.Sprintf("%s is out of stock.", productLabel(p)),
		Type:          model.TypeError,
		Priority:      model.PriorityCritical,
		Category:      model.CategoryInventory,
		CooldownHours: 12,
		Metadata:      map[string]interface{}{model.MetaProductID: p.ID, model.MetaSuppressEmail: true},
	})
}

func (d *dispatcher) NotifyExpiringSoon(ctx context.Context, userID uuid.UUID, p model.Product, daysLeft int) (*model.Notification, error) {
	priority := model.PriorityHigh
	if daysLeft <= 7 {
		priority = model.PriorityCritical
	}

	expiryDate := ""
	if p.ExpiryDate != nil {
		expiryDate = p.ExpiryDate.Format("2006-01-02")
	}

	return d.Create(ctx, model.CreateParams{
		UserID:        userID,
		Title:         "Expiring soon: " + productLabel(p),
		Message:       fmt.Sprintf("%s expires in %d day(s) (%s).", productLabel(p), daysLeft, expiryDate),
		Type:          model.TypeWarning,
		Priority:      priority,
		Category:      model.CategoryExpiry,
		CooldownHours: 24,
		Metadata: map[string]interface{}{
			model.MetaProductID:       p.ID,
			model.MetaNotificationKey: fmt.Sprintf("expiry:%s:%s", p.ID, expiryDate),
			model.MetaSuppressEmail:   true,
		},
	})
}

func (d *dispatcher) NotifySaleCompleted(ctx context.Context, userID uuid.UUID, saleID string, amount float64, items int) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:   userID,
		Title:    "Sale completed",
		Message:  fmt.Sprintf("Sale #%s completed: %d item(s), total $%.2f.", saleID, items, amount),
		Type:     model.TypeSuccess,
		Priority: model.PriorityLow,
		Category: model.CategorySales,
	})
}

func (d *dispatcher) NotifySystemError(ctx context.Context, userID uuid.UUID, msg, code string) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:        userID,
		Title:         "System error",
		Message:       fmt.Sprintf("%s (code: %s)", msg, code),
		Type:          model.TypeError,
		Priority:      model.PriorityCritical,
		Category:      model.CategorySystem,
		CooldownHours: 24,
		Metadata:      map[string]interface{}{model.MetaNotificationKey: "system:" + code},
	})
}

func (d *dispatcher) NotifyStockAdded(ctx context.Context, userID uuid.UUID, p model.Product, quantity int) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:   userID,
		Title:    "Stock added: " + productLabel(p),
		Message:  fmt.Sprintf("%d unit(s) of %s were added to stock.", quantity, productLabel(p)),
		Type:     model.TypeInfo,
		Priority: model.PriorityInfo,
		Category: model.CategoryInventory,
	})
}

func (d *dispatcher) NotifyBatchReceived(ctx context.Context, userID uuid.UUID, batchRef string, itemCount int) (*model.Notification, error) {
	return d.Create(ctx, model.CreateParams{
		UserID:   userID,
		Title:    "Batch received: " + batchRef,
		Message:  fmt.Sprintf("Batch %s received with %d item(s).", batchRef, itemCount),
		Type:     model.TypeInfo,
		Priority: model.PriorityInfo,
		Category: model.CategoryInventory,
	})
}

func (d *dispatcher) NotifyStockAdjustment(ctx context.Context, userID uuid.UUID, p model.Product, delta int, reason string) (*model.Notification, error) {
	direction := "increased"
	if delta < 0 {
		direction = "decreased"
	}
	return d.Create(ctx, model.CreateParams{
		UserID:   userID,
		Title:    "Stock adjusted: " + productLabel(p),
		Message:  fmt.Sprintf("%s stock %s by %d (%s).", productLabel(p), direction, abs(delta), reason),
		Type:     model.TypeInfo,
		Priority: model.PriorityInfo,
		Category: model.CategoryInventory,
		Metadata: map[string]interface{}{model.MetaProductID: p.ID, model.MetaSuppressEmail: true},
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
