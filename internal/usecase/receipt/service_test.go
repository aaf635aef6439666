package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhera-notify/internal/domain/entity"
	"adhera-notify/internal/repository"
)

// memRepo holds one record keyed by provider message id.
type memRepo struct {
	rec *entity.NotificationRecord
}

func (m *memRepo) Create(context.Context, *entity.NotificationRecord) error { return nil }
func (m *memRepo) Get(context.Context, string) (*entity.NotificationRecord, error) {
	return nil, entity.ErrNotFound
}
func (m *memRepo) GetByProviderMessageID(_ context.Context, id string) (*entity.NotificationRecord, error) {
	if m.rec == nil || m.rec.ProviderMessageID != id {
		return nil, entity.ErrNotFound
	}
	cp := *m.rec
	return &cp, nil
}
func (m *memRepo) MarkSent(context.Context, string, string) error                 { return nil }
func (m *memRepo) MarkFailed(context.Context, string, string, *time.Time) error   { return nil }
func (m *memRepo) MarkRetrying(context.Context, string, time.Time) (bool, error)  { return false, nil }
func (m *memRepo) MarkSuppressed(context.Context, string) error                   { return nil }
func (m *memRepo) AdvanceEngagement(_ context.Context, id string, status entity.Status) (bool, error) {
	if m.rec == nil || m.rec.ID != id {
		return false, entity.ErrNotFound
	}
	if status.EngagementRank() <= m.rec.Status.EngagementRank() {
		return false, nil
	}
	m.rec.Status = status
	return true, nil
}
func (m *memRepo) ListRetryEligible(context.Context, time.Time, time.Duration, int) ([]*entity.NotificationRecord, error) {
	return nil, nil
}
func (m *memRepo) ExistsRecent(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}
func (m *memRepo) ListFailed(context.Context, repository.FailedFilter, int, int) ([]*entity.NotificationRecord, error) {
	return nil, nil
}
func (m *memRepo) CountByStatus(context.Context) (map[entity.Status]int64, error) {
	return nil, nil
}

func sentRecord() *entity.NotificationRecord {
	return &entity.NotificationRecord{
		ID:                "notif-1",
		RecipientID:       "user-1",
		Channel:           entity.ChannelEmail,
		Status:            entity.StatusSent,
		ProviderMessageID: "em-1",
	}
}

func TestApply_AdvancesStatus(t *testing.T) {
	repo := &memRepo{rec: sentRecord()}
	svc := NewService(repo)

	applied, err := svc.Apply(context.Background(), "em-1", EventDelivered)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, entity.StatusDelivered, repo.rec.Status)
}

func TestApply_SkipsIntermediateStates(t *testing.T) {
	// clicked can arrive before delivered; the ladder only moves forward.
	repo := &memRepo{rec: sentRecord()}
	svc := NewService(repo)

	applied, err := svc.Apply(context.Background(), "em-1", EventClicked)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, entity.StatusClicked, repo.rec.Status)

	// A late delivered receipt must not regress the record.
	applied, err = svc.Apply(context.Background(), "em-1", EventDelivered)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, entity.StatusClicked, repo.rec.Status)
}

func TestApply_DuplicateIsNoOp(t *testing.T) {
	repo := &memRepo{rec: sentRecord()}
	svc := NewService(repo)

	applied, err := svc.Apply(context.Background(), "em-1", EventOpened)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.Apply(context.Background(), "em-1", EventOpened)
	require.NoError(t, err)
	assert.False(t, applied, "repeated receipt must be a no-op")
}

func TestApply_UnknownCorrelationID(t *testing.T) {
	svc := NewService(&memRepo{})

	_, err := svc.Apply(context.Background(), "em-unknown", EventDelivered)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestApply_InvalidEvent(t *testing.T) {
	svc := NewService(&memRepo{rec: sentRecord()})

	_, err := svc.Apply(context.Background(), "em-1", Event("bounced"))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Apply(context.Background(), "", EventDelivered)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
