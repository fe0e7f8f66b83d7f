package timeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

func TestService_Build(t *testing.T) {
	ctx := context.Background()
	header := models.PullRequest{ID: 7, Title: "Add timeline", Author: "amy", State: "OPEN"}

	t.Run("should merge current and rewritten commits into one timeline", func(t *testing.T) {
		gw := &vcs.MockGateway{}
		gw.On("PullRequest", mock.Anything, 7).Return(header, nil).Once()
		gw.On("CommitsPage", mock.Anything, 7, "").
			Return(vcs.Page[models.Hash]{Values: hashes("new1full", "new2full")}, nil).Once()
		gw.On("ActivityPage", mock.Anything, 7, 25, "").
			Return(vcs.Page[models.ActivityEntry]{
				Values: []models.ActivityEntry{
					models.NewUpdateActivity(models.Update{Author: "amy", Date: t0, Source: "old1", Destination: "main1"}),
				},
				Next: "page2",
			}, nil).Once()
		gw.On("ActivityPage", mock.Anything, 7, 25, "page2").
			Return(vcs.Page[models.ActivityEntry]{
				Values: []models.ActivityEntry{
					models.NewApprovalActivity(models.Approval{User: "bo", Date: t0}),
				},
			}, nil).Once()
		gw.On("MergeBase", mock.Anything, models.Hash("old1"), models.Hash("main1")).Return(record("base"), nil).Once()
		gw.On("Commit", mock.Anything, models.Hash("old1")).Return(record("old1full", "new1"), nil).Once()
		gw.On("Commit", mock.Anything, models.Hash("new1")).Return(record("new1full", "base"), nil).Once()
		gw.On("CommitCommentsPage", mock.Anything, models.Hash("old1full"), "").
			Return(commentsPage(models.Comment{User: "cy", Body: "on the old commit"}), nil).Once()
		gw.On("CommitCommentsPage", mock.Anything, mock.Anything, "").Return(commentsPage(), nil)

		tl, err := NewService(gw, Options{PageSize: 25, Concurrency: 2}).Build(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, header, tl.PullRequest)
		assert.Equal(t, hashes("new1full", "new2full", "old1full"), tl.Commits)
		assert.Equal(t, 2, tl.Walked)

		require.Len(t, tl.Entries, 3)
		assert.Equal(t, "on the old commit", tl.Entries[0].Text)
		assert.Equal(t, models.Hash("old1full"), *tl.Entries[0].Commit)
		assert.Equal(t, "main1..old1", tl.Entries[1].Text)
		assert.Equal(t, models.EntryApproval, tl.Entries[2].Kind)

		gw.AssertNumberOfCalls(t, "CommitCommentsPage", 3)
	})

	t.Run("should log how many walked commits are not current", func(t *testing.T) {
		color.NoColor = true
		var buf bytes.Buffer
		logCtx := logger.WithLogger(ctx, logger.New(&buf, true, false))

		gw := &vcs.MockGateway{}
		gw.On("PullRequest", mock.Anything, 7).Return(header, nil).Once()
		gw.On("CommitsPage", mock.Anything, 7, "").
			Return(vcs.Page[models.Hash]{Values: hashes("new1full")}, nil).Once()
		gw.On("ActivityPage", mock.Anything, 7, DefaultPageSize, "").
			Return(vcs.Page[models.ActivityEntry]{
				Values: []models.ActivityEntry{
					models.NewUpdateActivity(models.Update{Author: "amy", Date: t0, Source: "old1", Destination: "main1"}),
				},
			}, nil).Once()
		gw.On("MergeBase", mock.Anything, models.Hash("old1"), models.Hash("main1")).Return(record("base"), nil).Once()
		gw.On("Commit", mock.Anything, models.Hash("old1")).Return(record("old1full", "new1"), nil).Once()
		gw.On("Commit", mock.Anything, models.Hash("new1")).Return(record("new1full", "base"), nil).Once()
		gw.On("CommitCommentsPage", mock.Anything, mock.Anything, "").Return(commentsPage(), nil)

		tl, err := NewService(gw, Options{Concurrency: 1}).Build(logCtx, 7)

		require.NoError(t, err)
		assert.Equal(t, hashes("new1full", "old1full"), tl.Commits)
		assert.Contains(t, buf.String(), "walked=2 rewritten=1")
	})

	t.Run("should not produce a partial timeline when a walk fails", func(t *testing.T) {
		gw := &vcs.MockGateway{}
		gw.On("PullRequest", mock.Anything, 7).Return(header, nil).Once()
		gw.On("CommitsPage", mock.Anything, 7, "").Return(vcs.Page[models.Hash]{Values: hashes("c1")}, nil).Once()
		gw.On("ActivityPage", mock.Anything, 7, DefaultPageSize, "").
			Return(vcs.Page[models.ActivityEntry]{
				Values: []models.ActivityEntry{
					models.NewUpdateActivity(models.Update{Source: "s1", Destination: "d1"}),
				},
			}, nil).Once()
		gw.On("MergeBase", mock.Anything, models.Hash("s1"), models.Hash("d1")).Return(models.CommitRecord{}, nil).Once()

		tl, err := NewService(gw, Options{}).Build(ctx, 7)

		assert.ErrorIs(t, err, domainErrors.ErrMergeBaseUnresolved)
		assert.Empty(t, tl.Entries)
		gw.AssertNotCalled(t, "CommitCommentsPage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should stop at the first transport failure", func(t *testing.T) {
		gw := &vcs.MockGateway{}
		gw.On("PullRequest", mock.Anything, 7).Return(models.PullRequest{}, domainErrors.ErrNotFound).Once()

		_, err := NewService(gw, Options{}).Build(ctx, 7)

		assert.ErrorIs(t, err, domainErrors.ErrNotFound)
		gw.AssertNotCalled(t, "CommitsPage", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFetcher(t *testing.T) {
	t.Run("should use the default page size for non-positive sizes", func(t *testing.T) {
		gw := &vcs.MockGateway{}
		gw.On("ActivityPage", mock.Anything, 3, DefaultPageSize, "").
			Return(vcs.Page[models.ActivityEntry]{}, nil).Once()

		entries, err := NewFetcher(gw).ListActivity(context.Background(), 3, 0)

		require.NoError(t, err)
		assert.Empty(t, entries)
		gw.AssertExpectations(t)
	})

	t.Run("should list every open pull request", func(t *testing.T) {
		gw := &vcs.MockGateway{}
		gw.On("PullRequestsPage", mock.Anything, "").
			Return(vcs.Page[models.PullRequest]{Values: []models.PullRequest{{ID: 1}}, Next: "2"}, nil).Once()
		gw.On("PullRequestsPage", mock.Anything, "2").
			Return(vcs.Page[models.PullRequest]{Values: []models.PullRequest{{ID: 2}}}, nil).Once()

		prs, err := NewFetcher(gw).ListPullRequests(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []models.PullRequest{{ID: 1}, {ID: 2}}, prs)
	})
}
