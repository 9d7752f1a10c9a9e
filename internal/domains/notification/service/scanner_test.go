package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

type fakeProductSource struct {
	products []model.Product
}

func (f *fakeProductSource) ListActive(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if filter.OutOfStockOnly && p.StockInPieces > 0 {
			continue
		}
		if filter.ExpiringWithin > 0 && p.ExpiryDate == nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeUserSourceScan struct {
	user *model.User
}

func (f *fakeUserSourceScan) PrimaryNotificationUser(ctx context.Context) (*model.User, error) {
	return f.user, nil
}
func (f *fakeUserSourceScan) Email(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return f.user, nil
}
func (f *fakeUserSourceScan) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.user, nil
}

type fakeSettingsSource struct {
	settings model.Settings
}

func (f *fakeSettingsSource) Get(ctx context.Context) (model.Settings, error) {
	return f.settings, nil
}

type fakeScanSchedule struct {
	shouldRun    bool
	recordedErr  error
	recordedType string
}

func (f *fakeScanSchedule) Get(ctx context.Context, checkType string) (*model.ScanSchedule, error) {
	return &model.ScanSchedule{CheckType: checkType}, nil
}
func (f *fakeScanSchedule) ShouldRun(ctx context.Context, checkType string, interval time.Duration) (bool, error) {
	return f.shouldRun, nil
}
func (f *fakeScanSchedule) RecordRun(ctx context.Context, checkType string, count int, runErr error) error {
	f.recordedType = checkType
	f.recordedErr = runErr
	return nil
}

type countingDispatcher struct {
	mu              sync.Mutex
	lowStock        int
	criticalStock   int
	outOfStock      int
	expiringSoon    int
	systemErrors    int
}

func (d *countingDispatcher) Create(ctx context.Context, params model.CreateParams) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) NotifyLowStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lowStock++
	return nil, nil
}
func (d *countingDispatcher) NotifyCriticalStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.criticalStock++
	return nil, nil
}
func (d *countingDispatcher) NotifyOutOfStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outOfStock++
	return nil, nil
}
func (d *countingDispatcher) NotifyExpiringSoon(ctx context.Context, userID uuid.UUID, product model.Product, daysLeft int) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expiringSoon++
	return nil, nil
}
func (d *countingDispatcher) NotifySaleCompleted(ctx context.Context, userID uuid.UUID, saleID string, amount float64, items int) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) NotifySystemError(ctx context.Context, userID uuid.UUID, msg, code string) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.systemErrors++
	return nil, nil
}
func (d *countingDispatcher) NotifyStockAdded(ctx context.Context, userID uuid.UUID, product model.Product, quantity int) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) NotifyBatchReceived(ctx context.Context, userID uuid.UUID, batchRef string, itemCount int) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) NotifyStockAdjustment(ctx context.Context, userID uuid.UUID, product model.Product, delta int, reason string) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	return model.ListResult{}, nil
}
func (d *countingDispatcher) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (d *countingDispatcher) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (d *countingDispatcher) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (d *countingDispatcher) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

type fakeEmailRouterScan struct {
	summaryCalls int32
}

func (f *fakeEmailRouterScan) SendForNotification(ctx context.Context, n *model.Notification) error {
	return nil
}
func (f *fakeEmailRouterScan) SendAggregatedSummary(ctx context.Context, recipient model.User, scan ScanFindings) error {
	atomic.AddInt32(&f.summaryCalls, 1)
	return nil
}
func (f *fakeEmailRouterScan) SendDigest(ctx context.Context, recipient model.User, notifications []model.Notification) error {
	return nil
}

func daysFromNow(d int) *time.Time {
	t := time.Now().AddDate(0, 0, d)
	return &t
}

func TestRunHealthChecks_NoPrimaryUserSkips(t *testing.T) {
	products := &fakeProductSource{}
	users := &fakeUserSourceScan{user: nil}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	result := s.RunHealthChecks(context.Background(), true)

	assert.True(t, result.Skipped)
	assert.Equal(t, "no primary notification user", result.Reason)
}

func TestRunHealthChecks_ClassifiesLowCriticalAndOutOfStock(t *testing.T) {
	products := &fakeProductSource{products: []model.Product{
		{ID: "1", BrandName: "A", StockInPieces: 2, ReorderLevel: 10},  // critical (<= 5)
		{ID: "2", BrandName: "B", StockInPieces: 8, ReorderLevel: 10},  // warning low
		{ID: "3", BrandName: "C", StockInPieces: 0, ReorderLevel: 10},  // out of stock
		{ID: "4", BrandName: "D", StockInPieces: 50, ReorderLevel: 10}, // healthy, ignored
	}}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New(), Email: "owner@example.com"}}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	result := s.RunHealthChecks(context.Background(), true)

	require.False(t, result.Skipped)
	assert.Equal(t, 1, result.OutOfStockCount)
	assert.Equal(t, 2, result.LowStockCount)
	assert.Equal(t, 1, dispatch.criticalStock)
	assert.Equal(t, 1, dispatch.lowStock)
	assert.Equal(t, 1, dispatch.outOfStock)
}

func TestRunHealthChecks_ExpiringWithinWindow(t *testing.T) {
	products := &fakeProductSource{products: []model.Product{
		{ID: "1", BrandName: "SoonCritical", StockInPieces: 20, ReorderLevel: 5, ExpiryDate: daysFromNow(3)},
		{ID: "2", BrandName: "SoonWarning", StockInPieces: 20, ReorderLevel: 5, ExpiryDate: daysFromNow(20)},
		{ID: "3", BrandName: "FarAway", StockInPieces: 20, ReorderLevel: 5, ExpiryDate: daysFromNow(90)},
	}}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	result := s.RunHealthChecks(context.Background(), true)

	assert.Equal(t, 2, result.ExpiringCount)
	assert.Equal(t, 2, dispatch.expiringSoon)
}

func TestRunHealthChecks_EmailDisabledSkipsAggregatedSummary(t *testing.T) {
	products := &fakeProductSource{products: []model.Product{
		{ID: "1", BrandName: "A", StockInPieces: 0, ReorderLevel: 10},
	}}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.Settings{EmailAlertsEnabled: false}}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	s.RunHealthChecks(context.Background(), true)

	assert.Equal(t, int32(0), email.summaryCalls)
}

func TestRunHealthChecks_EmailEnabledSendsAggregatedSummaryWhenFindingsExist(t *testing.T) {
	products := &fakeProductSource{products: []model.Product{
		{ID: "1", BrandName: "A", StockInPieces: 0, ReorderLevel: 10},
	}}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.Settings{EmailAlertsEnabled: true}}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	s.RunHealthChecks(context.Background(), true)

	assert.Equal(t, int32(1), email.summaryCalls)
}

func TestRunHealthChecks_DurableDebounceSkipsWhenNotForced(t *testing.T) {
	products := &fakeProductSource{}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: false}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	result := s.RunHealthChecks(context.Background(), false)

	assert.True(t, result.Skipped)
	assert.Equal(t, "durable debounce", result.Reason)
}

func TestRunHealthChecks_ForceBypassesDebounce(t *testing.T) {
	products := &fakeProductSource{}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: false}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}

	s := NewScanner(products, users, settings, schedule, dispatch, email, nil)
	result := s.RunHealthChecks(context.Background(), true)

	assert.False(t, result.Skipped)
}

type fakeScanLock struct {
	acquired bool
}

func (f *fakeScanLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return f.acquired, nil
}

func TestRunHealthChecks_LockNotAcquiredSkips(t *testing.T) {
	products := &fakeProductSource{}
	users := &fakeUserSourceScan{user: &model.User{ID: uuid.New()}}
	settings := &fakeSettingsSource{settings: model.DefaultSettings()}
	schedule := &fakeScanSchedule{shouldRun: true}
	dispatch := &countingDispatcher{}
	email := &fakeEmailRouterScan{}
	lock := &fakeScanLock{acquired: false}

	s := NewScanner(products, users, settings, schedule, dispatch, email, lock)
	result := s.RunHealthChecks(context.Background(), false)

	assert.True(t, result.Skipped)
	assert.Equal(t, "another instance is running", result.Reason)
}

func TestEffectiveReorder(t *testing.T) {
	tests := []struct {
		name     string
		product  model.Product
		expected int
	}{
		{"explicit reorder level wins", model.Product{ReorderLevel: 12, StockInPieces: 100}, 12},
		{"falls back to 20% of stock", model.Product{ReorderLevel: 0, StockInPieces: 100}, 20},
		{"floors at 5", model.Product{ReorderLevel: 0, StockInPieces: 10}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, effectiveReorder(tt.product))
		})
	}
}

func TestCriticalThreshold(t *testing.T) {
	tests := []struct {
		name     string
		reorder  int
		expected int
	}{
		{"half of reorder", 20, 10},
		{"floors at 5 when reorder >= 5", 8, 5},
		{"floors at reorder itself when reorder < 5", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, criticalThreshold(tt.reorder))
		})
	}
}
