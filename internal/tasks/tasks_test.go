package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"radargo/backend/internal/models"
	"radargo/backend/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) DemoteStaleParticipants(olderThan time.Duration) ([]string, error) {
	args := m.Called(olderThan)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockStore) ReapOrphanSessions(grace time.Duration) ([]string, error) {
	args := m.Called(grace)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockStore) PublishChange(ev models.ChangeEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func TestHandlePresenceSweep_PublishesDemotions(t *testing.T) {
	store := new(MockStore)
	store.On("DemoteStaleParticipants", mock.Anything).Return([]string{"p1", "p2"}, nil)
	store.On("PublishChange", mock.MatchedBy(func(ev models.ChangeEvent) bool {
		return ev.Table == models.TableParticipants &&
			ev.Op == models.OpUpdate &&
			ev.Status == models.StatusOffline
	})).Return(nil).Twice()

	h := tasks.NewHandlers(store)
	err := h.HandlePresenceSweep(context.Background(), asynq.NewTask(tasks.TypePresenceSweep, nil))

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestHandlePresenceSweep_NothingStale(t *testing.T) {
	store := new(MockStore)
	store.On("DemoteStaleParticipants", mock.Anything).Return([]string{}, nil)

	h := tasks.NewHandlers(store)
	err := h.HandlePresenceSweep(context.Background(), asynq.NewTask(tasks.TypePresenceSweep, nil))

	assert.NoError(t, err)
	store.AssertNotCalled(t, "PublishChange", mock.Anything)
}

func TestHandlePresenceSweep_StoreError(t *testing.T) {
	store := new(MockStore)
	cause := errors.New("db down")
	store.On("DemoteStaleParticipants", mock.Anything).Return(nil, cause)

	h := tasks.NewHandlers(store)
	err := h.HandlePresenceSweep(context.Background(), asynq.NewTask(tasks.TypePresenceSweep, nil))

	assert.ErrorIs(t, err, cause)
}

func TestHandleSessionReap(t *testing.T) {
	store := new(MockStore)
	store.On("ReapOrphanSessions", mock.Anything).Return([]string{"s1"}, nil)

	h := tasks.NewHandlers(store)
	err := h.HandleSessionReap(context.Background(), asynq.NewTask(tasks.TypeSessionReap, nil))

	assert.NoError(t, err)
	store.AssertExpectations(t)
}
