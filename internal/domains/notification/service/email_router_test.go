package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/infrastructure/email"
)

type fakeSender struct {
	mu       sync.Mutex
	ready    bool
	sent     []email.Message
	result   email.Result
	sendErr  error
}

func (f *fakeSender) Ready() bool { return f.ready }
func (f *fakeSender) Send(ctx context.Context, msg email.Message) (email.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.sendErr != nil {
		return email.Result{}, f.sendErr
	}
	if f.result == (email.Result{}) {
		return email.Result{Success: true}, nil
	}
	return f.result, nil
}

type fakeUserSourceRouter struct {
	user *model.User
	err  error
}

func (f *fakeUserSourceRouter) PrimaryNotificationUser(ctx context.Context) (*model.User, error) {
	return f.user, f.err
}
func (f *fakeUserSourceRouter) Email(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return f.user, f.err
}
func (f *fakeUserSourceRouter) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.user, f.err
}

type fakeNotifRepoRouter struct {
	mu           sync.Mutex
	markedSentID uuid.UUID
}

func (f *fakeNotifRepoRouter) Insert(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return n, nil
}
func (f *fakeNotifRepoRouter) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, model.ErrNotFound
}
func (f *fakeNotifRepoRouter) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	return model.ListResult{}, nil
}
func (f *fakeNotifRepoRouter) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotifRepoRouter) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (f *fakeNotifRepoRouter) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotifRepoRouter) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (f *fakeNotifRepoRouter) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotifRepoRouter) SetEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedSentID = id
	return nil
}
func (f *fakeNotifRepoRouter) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}
func (f *fakeNotifRepoRouter) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Notification, error) {
	return nil, nil
}

func TestSendForNotification_SkipsWhenSenderNotReady(t *testing.T) {
	sender := &fakeSender{ready: false}
	users := &fakeUserSourceRouter{user: &model.User{Email: "user@example.com"}}
	repo := &fakeNotifRepoRouter{}
	r := NewEmailRouter(sender, users, repo, nil)

	err := r.SendForNotification(context.Background(), &model.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "t"})

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendForNotification_SendsAndMarksSent(t *testing.T) {
	sender := &fakeSender{ready: true}
	userID := uuid.New()
	users := &fakeUserSourceRouter{user: &model.User{ID: userID, Email: "user@example.com"}}
	repo := &fakeNotifRepoRouter{}
	r := NewEmailRouter(sender, users, repo, nil)

	n := &model.Notification{ID: uuid.New(), UserID: userID, Title: "Low stock", Priority: model.PriorityCritical}
	err := r.SendForNotification(context.Background(), n)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"user@example.com"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "[CRITICAL]")
	assert.Equal(t, n.ID, repo.markedSentID)
}

func TestSendForNotification_RecipientOverrideAppliesToAddress(t *testing.T) {
	sender := &fakeSender{ready: true}
	users := &fakeUserSourceRouter{user: &model.User{Email: "real-pharmacist@example.com"}}
	repo := &fakeNotifRepoRouter{}
	override := func(string) string { return "sandbox@example.com" }
	r := NewEmailRouter(sender, users, repo, override)

	err := r.SendForNotification(context.Background(), &model.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "t"})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"sandbox@example.com"}, sender.sent[0].To)
}

func TestSendForNotification_SendFailureIsLoggedNotReturned(t *testing.T) {
	sender := &fakeSender{ready: true, result: email.Result{Success: false, Error: "smtp timeout"}}
	users := &fakeUserSourceRouter{user: &model.User{Email: "user@example.com"}}
	repo := &fakeNotifRepoRouter{}
	r := NewEmailRouter(sender, users, repo, nil)

	err := r.SendForNotification(context.Background(), &model.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "t"})

	assert.NoError(t, err, "send failures are a logged side effect, not a caller-visible error")
	assert.Equal(t, uuid.Nil, repo.markedSentID)
}

func TestSendAggregatedSummary_SkipsWhenFindingsEmpty(t *testing.T) {
	sender := &fakeSender{ready: true}
	r := NewEmailRouter(sender, &fakeUserSourceRouter{}, &fakeNotifRepoRouter{}, nil)

	err := r.SendAggregatedSummary(context.Background(), model.User{Email: "x@example.com"}, ScanFindings{})

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendAggregatedSummary_SeverityReflectsWorstFinding(t *testing.T) {
	sender := &fakeSender{ready: true}
	r := NewEmailRouter(sender, &fakeUserSourceRouter{}, &fakeNotifRepoRouter{}, nil)

	findings := ScanFindings{OutOfStock: []model.Product{{ID: "1", BrandName: "A"}}}
	err := r.SendAggregatedSummary(context.Background(), model.User{Email: "x@example.com"}, findings)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "[CRITICAL]")
}

func TestSendDigest_SkipsWhenNoNotifications(t *testing.T) {
	sender := &fakeSender{ready: true}
	r := NewEmailRouter(sender, &fakeUserSourceRouter{}, &fakeNotifRepoRouter{}, nil)

	err := r.SendDigest(context.Background(), model.User{Email: "x@example.com"}, nil)

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendDigest_GroupsByCategory(t *testing.T) {
	sender := &fakeSender{ready: true}
	r := NewEmailRouter(sender, &fakeUserSourceRouter{}, &fakeNotifRepoRouter{}, nil)

	notifications := []model.Notification{
		{Title: "Low stock: A", Category: model.CategoryInventory},
		{Title: "Expiring: B", Category: model.CategoryExpiry},
	}
	err := r.SendDigest(context.Background(), model.User{Email: "x@example.com"}, notifications)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "2 notification(s)")
	assert.Contains(t, sender.sent[0].HTML, "Low stock: A")
	assert.Contains(t, sender.sent[0].HTML, "Expiring: B")
}
