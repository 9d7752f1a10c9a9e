package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurisuuChan/medcore/internal/domains/notification/dedupe"
	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

type fakeNotificationRepo struct {
	mu       sync.Mutex
	inserted []*model.Notification
	insertFn func(*model.Notification) error
}

func (f *fakeNotificationRepo) Insert(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertFn != nil {
		if err := f.insertFn(n); err != nil {
			return nil, err
		}
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	f.inserted = append(f.inserted, n)
	return n, nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, model.ErrNotFound
}
func (f *fakeNotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	return model.ListResult{}, nil
}
func (f *fakeNotificationRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return &model.Notification{ID: id, UserID: userID}, nil
}
func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepo) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return &model.Notification{ID: id, UserID: userID}, nil
}
func (f *fakeNotificationRepo) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepo) SetEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}
func (f *fakeNotificationRepo) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Notification, error) {
	return nil, nil
}

type fakeCooldownRepoDispatch struct {
	allow bool
}

func (f *fakeCooldownRepoDispatch) ShouldSendAndRecord(ctx context.Context, userID uuid.UUID, key string, cooldownHours int) (bool, error) {
	return f.allow, nil
}
func (f *fakeCooldownRepoDispatch) CleanupOlderThan(ctx context.Context, before time.Time) (int, error) {
	return 0, nil
}

type fakeEmailRouter struct {
	mu       sync.Mutex
	sentFor  []*model.Notification
	sendErr  error
	sendWait chan struct{}
}

func (f *fakeEmailRouter) SendForNotification(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	f.sentFor = append(f.sentFor, n)
	f.mu.Unlock()
	if f.sendWait != nil {
		close(f.sendWait)
	}
	return f.sendErr
}
func (f *fakeEmailRouter) SendAggregatedSummary(ctx context.Context, recipient model.User, scan ScanFindings) error {
	return nil
}
func (f *fakeEmailRouter) SendDigest(ctx context.Context, recipient model.User, notifications []model.Notification) error {
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeBus) Subscribe(userID uuid.UUID, handler func(Event)) func() { return func() {} }
func (f *fakeBus) Publish(event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func newTestDispatcher(allowSend bool) (*dispatcher, *fakeNotificationRepo, *fakeEmailRouter, *fakeBus) {
	repo := &fakeNotificationRepo{}
	email := &fakeEmailRouter{}
	bus := &fakeBus{}
	deduper := dedupe.New(&fakeCooldownRepoDispatch{allow: allowSend})
	d := NewDispatcher(repo, deduper, email, bus).(*dispatcher)
	return d, repo, email, bus
}

func TestCreate_RejectsMissingUserID(t *testing.T) {
	d, _, _, _ := newTestDispatcher(true)

	_, err := d.Create(context.Background(), model.CreateParams{Title: "t", Message: "m"})

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "user_id", ve.Field)
}

func TestCreate_RejectsOversizedTitle(t *testing.T) {
	d, _, _, _ := newTestDispatcher(true)
	longTitle := make([]byte, 201)

	_, err := d.Create(context.Background(), model.CreateParams{UserID: uuid.New(), Title: string(longTitle), Message: "m"})

	assert.Error(t, err)
}

func TestCreate_DefaultsTypeCategoryPriority(t *testing.T) {
	d, repo, _, bus := newTestDispatcher(true)

	n, err := d.Create(context.Background(), model.CreateParams{UserID: uuid.New(), Title: "hello", Message: "world"})

	require.NoError(t, err)
	assert.Equal(t, model.TypeInfo, n.Type)
	assert.Equal(t, model.CategoryGeneral, n.Category)
	assert.Equal(t, model.PriorityMedium, n.Priority)
	require.Len(t, repo.inserted, 1)
	require.Len(t, bus.events, 1)
	assert.Equal(t, EventInsert, bus.events[0].EventType)
}

func TestCreate_SanitizesTitleAndMessage(t *testing.T) {
	d, repo, _, _ := newTestDispatcher(true)

	_, err := d.Create(context.Background(), model.CreateParams{
		UserID:  uuid.New(),
		Title:   "<script>alert(1)</script>",
		Message: `He said "hi" & left`,
	})

	require.NoError(t, err)
	assert.NotContains(t, repo.inserted[0].Title, "<script>")
	assert.Contains(t, repo.inserted[0].Message, "&amp;")
}

func TestSanitize_IsIdempotent(t *testing.T) {
	inputs := []string{"&", "<b>bold</b> & \"quoted\" 'text'", "already &amp; escaped"}

	for _, in := range inputs {
		once := sanitize(in)
		twice := sanitize(once)
		assert.Equal(t, once, twice, "sanitize must not re-escape its own output for %q", in)
	}
}

func TestCreate_DedupeBlocksReturnsNilWithoutError(t *testing.T) {
	d, repo, _, bus := newTestDispatcher(false)

	n, err := d.Create(context.Background(), model.CreateParams{
		UserID:   uuid.New(),
		Title:    "Low stock",
		Message:  "m",
		Category: model.CategoryInventory,
		Priority: model.PriorityHigh,
	})

	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, repo.inserted)
	assert.Empty(t, bus.events)
}

func TestCreate_StorageFailureWrapsError(t *testing.T) {
	d, repo, _, _ := newTestDispatcher(true)
	repo.insertFn = func(n *model.Notification) error { return assertStorageErr }

	_, err := d.Create(context.Background(), model.CreateParams{UserID: uuid.New(), Title: "t", Message: "m"})

	var se *model.StorageError
	require.ErrorAs(t, err, &se)
}

func TestCreate_HighPriorityFiresEmailAsynchronously(t *testing.T) {
	repo := &fakeNotificationRepo{}
	wait := make(chan struct{})
	email := &fakeEmailRouter{sendWait: wait}
	bus := &fakeBus{}
	deduper := dedupe.New(&fakeCooldownRepoDispatch{allow: true})
	d := NewDispatcher(repo, deduper, email, bus).(*dispatcher)

	_, err := d.Create(context.Background(), model.CreateParams{
		UserID:   uuid.New(),
		Title:    "Critical",
		Message:  "m",
		Priority: model.PriorityCritical,
		Category: model.CategorySystem,
	})
	require.NoError(t, err)

	select {
	case <-wait:
	case <-time.After(2 * time.Second):
		t.Fatal("expected email send to fire for high priority notification")
	}
}

func TestCreate_SuppressEmailMetadataSkipsSend(t *testing.T) {
	d, _, email, _ := newTestDispatcher(true)

	_, err := d.NotifyLowStock(context.Background(), uuid.New(), model.Product{ID: "sku-1", BrandName: "Paracetamol", StockInPieces: 2, ReorderLevel: 10})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	email.mu.Lock()
	defer email.mu.Unlock()
	assert.Empty(t, email.sentFor, "low stock notifications are suppressed from per-event email")
}

var assertStorageErr = &model.StorageError{Op: "insert", Err: context.DeadlineExceeded}
