package job

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

type fakeNotificationRepoDigest struct {
	rows []model.Notification
}

func (f *fakeNotificationRepoDigest) Insert(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return n, nil
}
func (f *fakeNotificationRepoDigest) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, model.ErrNotFound
}
func (f *fakeNotificationRepoDigest) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	return model.ListResult{}, nil
}
func (f *fakeNotificationRepoDigest) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepoDigest) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationRepoDigest) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepoDigest) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationRepoDigest) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepoDigest) SetEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}
func (f *fakeNotificationRepoDigest) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}
func (f *fakeNotificationRepoDigest) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Notification, error) {
	return f.rows, nil
}

type fakeUserSourceDigest struct {
	byEmail map[string]*model.User
}

func (f *fakeUserSourceDigest) PrimaryNotificationUser(ctx context.Context) (*model.User, error) {
	return nil, nil
}
func (f *fakeUserSourceDigest) Email(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return nil, nil
}
func (f *fakeUserSourceDigest) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

type fakeSettingsSourceDigest struct {
	settings model.Settings
	err      error
}

func (f *fakeSettingsSourceDigest) Get(ctx context.Context) (model.Settings, error) {
	return f.settings, f.err
}

type fakeEmailRouterDigest struct {
	sendCount int
	sendErr   error
}

func (f *fakeEmailRouterDigest) SendForNotification(ctx context.Context, n *model.Notification) error {
	return nil
}
func (f *fakeEmailRouterDigest) SendAggregatedSummary(ctx context.Context, recipient model.User, scan service.ScanFindings) error {
	return nil
}
func (f *fakeEmailRouterDigest) SendDigest(ctx context.Context, recipient model.User, notifications []model.Notification) error {
	f.sendCount++
	return f.sendErr
}

func TestDailyDigestHandler_SkipsWhenDisabled(t *testing.T) {
	settings := &fakeSettingsSourceDigest{settings: model.Settings{DailyEmailEnabled: false}}
	email := &fakeEmailRouterDigest{}
	h := NewDailyDigestHandler(&fakeNotificationRepoDigest{}, &fakeUserSourceDigest{}, settings, email)

	err := h.ProcessTask(context.Background(), NewDailyDigestTask())

	require.NoError(t, err)
	assert.Equal(t, 0, email.sendCount)
}

func TestDailyDigestHandler_SkipsOutsideConfiguredWindow(t *testing.T) {
	farFromNow := time.Now().Add(12 * time.Hour)
	settings := &fakeSettingsSourceDigest{settings: model.Settings{
		DailyEmailEnabled:    true,
		DailyEmailTimeHHMM:   farFromNow.Format("15:04"),
		DailyEmailRecipients: []string{"owner@example.com"},
	}}
	email := &fakeEmailRouterDigest{}
	h := NewDailyDigestHandler(&fakeNotificationRepoDigest{}, &fakeUserSourceDigest{}, settings, email)

	err := h.ProcessTask(context.Background(), NewDailyDigestTask())

	require.NoError(t, err)
	assert.Equal(t, 0, email.sendCount, "digest must not send outside its configured time-of-day window")
}

func TestDailyDigestHandler_SendsOncePerRecipientWithActivity(t *testing.T) {
	now := time.Now()
	settings := &fakeSettingsSourceDigest{settings: model.Settings{
		DailyEmailEnabled:    true,
		DailyEmailTimeHHMM:   now.Format("15:04"),
		DailyEmailRecipients: []string{"owner@example.com", "nobody@example.com"},
	}}
	userID := uuid.New()
	users := &fakeUserSourceDigest{byEmail: map[string]*model.User{
		"owner@example.com": {ID: userID, Email: "owner@example.com"},
	}}
	repo := &fakeNotificationRepoDigest{rows: []model.Notification{{Title: "Low stock"}}}
	email := &fakeEmailRouterDigest{}
	h := NewDailyDigestHandler(repo, users, settings, email)

	err := h.ProcessTask(context.Background(), NewDailyDigestTask())

	require.NoError(t, err)
	assert.Equal(t, 1, email.sendCount, "only the recipient resolvable to a user with activity should be emailed")
}

func TestDailyDigestHandler_SkipsRecipientWithNoRecentActivity(t *testing.T) {
	now := time.Now()
	settings := &fakeSettingsSourceDigest{settings: model.Settings{
		DailyEmailEnabled:    true,
		DailyEmailTimeHHMM:   now.Format("15:04"),
		DailyEmailRecipients: []string{"owner@example.com"},
	}}
	users := &fakeUserSourceDigest{byEmail: map[string]*model.User{
		"owner@example.com": {ID: uuid.New(), Email: "owner@example.com"},
	}}
	repo := &fakeNotificationRepoDigest{rows: nil}
	email := &fakeEmailRouterDigest{}
	h := NewDailyDigestHandler(repo, users, settings, email)

	err := h.ProcessTask(context.Background(), NewDailyDigestTask())

	require.NoError(t, err)
	assert.Equal(t, 0, email.sendCount)
}

func TestInConfiguredWindow(t *testing.T) {
	base := time.Date(2026, 7, 30, 7, 12, 0, 0, time.UTC)

	tests := []struct {
		name     string
		hhmm     string
		now      time.Time
		expected bool
	}{
		{"same half hour bucket", "07:00", base, true},
		{"same hour different half", "07:45", base, false},
		{"different hour", "08:12", base, false},
		{"invalid format never matches", "not-a-time", base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, inConfiguredWindow(tt.hhmm, tt.now))
		})
	}
}
