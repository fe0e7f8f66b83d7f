package vcs

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mojotech/prist/internal/models"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) PullRequestsPage(ctx context.Context, cursor string) (Page[models.PullRequest], error) {
	args := m.Called(ctx, cursor)
	return args.Get(0).(Page[models.PullRequest]), args.Error(1)
}

func (m *MockGateway) PullRequest(ctx context.Context, id int) (models.PullRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PullRequest), args.Error(1)
}

func (m *MockGateway) CommitsPage(ctx context.Context, prID int, cursor string) (Page[models.Hash], error) {
	args := m.Called(ctx, prID, cursor)
	return args.Get(0).(Page[models.Hash]), args.Error(1)
}

func (m *MockGateway) ActivityPage(ctx context.Context, prID int, pageSize int, cursor string) (Page[models.ActivityEntry], error) {
	args := m.Called(ctx, prID, pageSize, cursor)
	return args.Get(0).(Page[models.ActivityEntry]), args.Error(1)
}

func (m *MockGateway) Commit(ctx context.Context, hash models.Hash) (models.CommitRecord, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(models.CommitRecord), args.Error(1)
}

func (m *MockGateway) MergeBase(ctx context.Context, a, b models.Hash) (models.CommitRecord, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(models.CommitRecord), args.Error(1)
}

func (m *MockGateway) CommitCommentsPage(ctx context.Context, hash models.Hash, cursor string) (Page[models.Comment], error) {
	args := m.Called(ctx, hash, cursor)
	return args.Get(0).(Page[models.Comment]), args.Error(1)
}
