package github

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

func newTestClient() (*GitHubClient, *MockPRService, *MockIssuesService, *MockRepoService) {
	pr := &MockPRService{}
	issues := &MockIssuesService{}
	repo := &MockRepoService{}
	return NewGitHubClientWithServices(pr, issues, repo, "test-owner", "test-repo"), pr, issues, repo
}

func statusResponse(code int) *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: code}}
}

var created = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func TestGitHubClient_PullRequest(t *testing.T) {
	t.Run("should map the pull request header", func(t *testing.T) {
		client, mockPR, _, _ := newTestClient()
		mockPR.On("Get", mock.Anything, "test-owner", "test-repo", 12).
			Return(&github.PullRequest{
				Number:         github.Ptr(12),
				Title:          github.Ptr("Add timeline"),
				State:          github.Ptr("open"),
				User:           &github.User{Login: github.Ptr("octo")},
				Comments:       github.Ptr(2),
				ReviewComments: github.Ptr(3),
				CreatedAt:      &github.Timestamp{Time: created},
				Base:           &github.PullRequestBranch{SHA: github.Ptr("base01")},
			}, &github.Response{}, nil).Once()

		pr, err := client.PullRequest(context.Background(), 12)

		require.NoError(t, err)
		assert.Equal(t, models.PullRequest{
			ID:           12,
			Title:        "Add timeline",
			Author:       "octo",
			State:        "OPEN",
			CommentCount: 5,
			CreatedAt:    created,
		}, pr)
		mockPR.AssertExpectations(t)
	})

	t.Run("should map status codes to transport errors", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, domainErrors.ErrUnauthorized},
			{http.StatusNotFound, domainErrors.ErrNotFound},
			{http.StatusTooManyRequests, domainErrors.ErrRateLimit},
			{http.StatusBadGateway, domainErrors.ErrRequestFailed},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				client, mockPR, _, _ := newTestClient()
				mockPR.On("Get", mock.Anything, "test-owner", "test-repo", 1).
					Return(nil, statusResponse(tt.status), errors.New("boom"))

				_, err := client.PullRequest(context.Background(), 1)

				assert.ErrorIs(t, err, tt.want)
				assert.True(t, domainErrors.IsType(err, domainErrors.TypeTransport))
			})
		}
	})

	t.Run("should treat rate limit errors as rate limited", func(t *testing.T) {
		client, mockPR, _, _ := newTestClient()
		req, err := http.NewRequest(http.MethodGet, "https://api.github.com/repos/test-owner/test-repo/pulls/1", nil)
		require.NoError(t, err)
		resp := &http.Response{StatusCode: http.StatusForbidden, Request: req}
		mockPR.On("Get", mock.Anything, "test-owner", "test-repo", 1).
			Return(nil, &github.Response{Response: resp}, &github.RateLimitError{Response: resp, Message: "slow down"})

		_, err = client.PullRequest(context.Background(), 1)

		assert.ErrorIs(t, err, domainErrors.ErrRateLimit)
	})
}

func TestGitHubClient_CommitsPage(t *testing.T) {
	t.Run("should page through commits with numeric cursors", func(t *testing.T) {
		client, mockPR, _, _ := newTestClient()
		mockPR.On("ListCommits", mock.Anything, "test-owner", "test-repo", 3, &github.ListOptions{Page: 0, PerPage: defaultPerPage}).
			Return([]*github.RepositoryCommit{{SHA: github.Ptr("aaa")}, {SHA: github.Ptr("bbb")}}, &github.Response{NextPage: 2}, nil).Once()
		mockPR.On("ListCommits", mock.Anything, "test-owner", "test-repo", 3, &github.ListOptions{Page: 2, PerPage: defaultPerPage}).
			Return([]*github.RepositoryCommit{{SHA: github.Ptr("ccc")}}, &github.Response{}, nil).Once()

		hashes, err := vcs.Drain(context.Background(), func(ctx context.Context, cursor string) (vcs.Page[models.Hash], error) {
			return client.CommitsPage(ctx, 3, cursor)
		})

		require.NoError(t, err)
		assert.Equal(t, []models.Hash{"aaa", "bbb", "ccc"}, hashes)
		mockPR.AssertExpectations(t)
	})

	t.Run("should reject a malformed cursor", func(t *testing.T) {
		client, _, _, _ := newTestClient()

		_, err := client.CommitsPage(context.Background(), 3, "next")

		assert.ErrorIs(t, err, domainErrors.ErrRequestFailed)
	})
}

func TestGitHubClient_ActivityPage(t *testing.T) {
	t.Run("should merge comments, reviews and force pushes", func(t *testing.T) {
		client, mockPR, mockIssues, _ := newTestClient()
		opts := github.ListOptions{Page: 0, PerPage: 10}
		firstPage := github.ListOptions{Page: 1, PerPage: 10}

		mockIssues.On("ListComments", mock.Anything, "test-owner", "test-repo", 5, &github.IssueListCommentsOptions{ListOptions: opts}).
			Return([]*github.IssueComment{{
				User:      &github.User{Login: github.Ptr("amy"), Name: github.Ptr("Amy")},
				Body:      github.Ptr("first"),
				CreatedAt: &github.Timestamp{Time: created},
			}}, &github.Response{}, nil).Once()
		mockPR.On("ListComments", mock.Anything, "test-owner", "test-repo", 5, &github.PullRequestListCommentsOptions{ListOptions: firstPage}).
			Return([]*github.PullRequestComment{{
				User: &github.User{Login: github.Ptr("bo")},
				Body: github.Ptr("nit"),
				Path: github.Ptr("main.go"),
				Line: github.Ptr(8),
			}}, &github.Response{}, nil).Once()
		mockPR.On("ListReviews", mock.Anything, "test-owner", "test-repo", 5, &firstPage).
			Return([]*github.PullRequestReview{
				{User: &github.User{Login: github.Ptr("cy")}, State: github.Ptr("APPROVED")},
				{User: &github.User{Login: github.Ptr("dee")}, State: github.Ptr("COMMENTED")},
				{User: &github.User{Login: github.Ptr("eve")}, State: github.Ptr("CHANGES_REQUESTED"), Body: github.Ptr("please fix")},
			}, &github.Response{}, nil).Once()
		mockIssues.On("ListIssueTimeline", mock.Anything, "test-owner", "test-repo", 5, &firstPage).
			Return([]*github.Timeline{
				{Event: github.Ptr("labeled")},
				{Event: github.Ptr("head_ref_force_pushed"), CommitID: github.Ptr("f00d"), Actor: &github.User{Login: github.Ptr("amy")}},
			}, &github.Response{}, nil).Once()
		mockPR.On("Get", mock.Anything, "test-owner", "test-repo", 5).
			Return(&github.PullRequest{Number: github.Ptr(5), Base: &github.PullRequestBranch{SHA: github.Ptr("base01")}}, &github.Response{}, nil).Once()

		entries, err := vcs.Drain(context.Background(), func(ctx context.Context, cursor string) (vcs.Page[models.ActivityEntry], error) {
			return client.ActivityPage(ctx, 5, 10, cursor)
		})

		require.NoError(t, err)
		require.Len(t, entries, 5)

		assert.Equal(t, "Amy", entries[0].Comment.User)
		assert.Equal(t, created, entries[0].Comment.CreatedAt)

		require.NotNil(t, entries[1].Comment.Inline)
		assert.Equal(t, "main.go", entries[1].Comment.Inline.Path)
		assert.Equal(t, 8, *entries[1].Comment.Inline.To)

		assert.Equal(t, models.ActivityApproval, entries[2].Kind)
		assert.Equal(t, "cy", entries[2].Approval.User)

		assert.Equal(t, models.ActivityComment, entries[3].Kind)
		assert.Equal(t, "please fix", entries[3].Comment.Body)

		assert.Equal(t, models.ActivityUpdate, entries[4].Kind)
		assert.Equal(t, models.Update{Author: "amy", Source: "f00d", Destination: "base01"}, *entries[4].Update)

		mockPR.AssertExpectations(t)
		mockIssues.AssertExpectations(t)
	})

	t.Run("should advance to the next stage when a listing ends", func(t *testing.T) {
		client, _, mockIssues, _ := newTestClient()
		mockIssues.On("ListComments", mock.Anything, "test-owner", "test-repo", 5, mock.Anything).
			Return([]*github.IssueComment{}, &github.Response{NextPage: 3}, nil).Once()

		page, err := client.ActivityPage(context.Background(), 5, 10, "comments:2")

		require.NoError(t, err)
		assert.Equal(t, "comments:3", page.Next)
	})

	t.Run("should end after the timeline", func(t *testing.T) {
		client, _, mockIssues, _ := newTestClient()
		mockIssues.On("ListIssueTimeline", mock.Anything, "test-owner", "test-repo", 5, mock.Anything).
			Return([]*github.Timeline{}, &github.Response{}, nil).Once()

		page, err := client.ActivityPage(context.Background(), 5, 10, "timeline:4")

		require.NoError(t, err)
		assert.Empty(t, page.Next)
	})

	t.Run("should reject unknown stages", func(t *testing.T) {
		client, _, _, _ := newTestClient()

		_, err := client.ActivityPage(context.Background(), 5, 10, "events:1")

		assert.ErrorIs(t, err, domainErrors.ErrRequestFailed)
	})
}

func TestGitHubClient_Commits(t *testing.T) {
	t.Run("should fetch a commit with its parents", func(t *testing.T) {
		client, _, _, mockRepo := newTestClient()
		mockRepo.On("GetCommit", mock.Anything, "test-owner", "test-repo", "abc123", (*github.ListOptions)(nil)).
			Return(&github.RepositoryCommit{
				SHA:     github.Ptr("abc123"),
				Parents: []*github.Commit{{SHA: github.Ptr("def456")}},
			}, &github.Response{}, nil).Once()

		c, err := client.Commit(context.Background(), "abc123")

		require.NoError(t, err)
		assert.Equal(t, models.CommitRecord{Hash: "abc123", Parents: []models.Hash{"def456"}}, c)
	})

	t.Run("should resolve the merge base from a comparison", func(t *testing.T) {
		client, _, _, mockRepo := newTestClient()
		mockRepo.On("CompareCommits", mock.Anything, "test-owner", "test-repo", "beef", "f00d", mock.Anything).
			Return(&github.CommitsComparison{
				MergeBaseCommit: &github.RepositoryCommit{SHA: github.Ptr("base01")},
			}, &github.Response{}, nil).Once()

		c, err := client.MergeBase(context.Background(), "f00d", "beef")

		require.NoError(t, err)
		assert.Equal(t, models.Hash("base01"), c.Hash)
	})

	t.Run("should return an empty record when the comparison has no merge base", func(t *testing.T) {
		client, _, _, mockRepo := newTestClient()
		mockRepo.On("CompareCommits", mock.Anything, "test-owner", "test-repo", "beef", "f00d", mock.Anything).
			Return(&github.CommitsComparison{}, &github.Response{}, nil).Once()

		c, err := client.MergeBase(context.Background(), "f00d", "beef")

		require.NoError(t, err)
		assert.Empty(t, c.Hash)
	})

	t.Run("should list commit comments", func(t *testing.T) {
		client, _, _, mockRepo := newTestClient()
		mockRepo.On("ListCommitComments", mock.Anything, "test-owner", "test-repo", "abc123", mock.Anything).
			Return([]*github.RepositoryComment{
				{User: &github.User{Login: github.Ptr("amy")}, Body: github.Ptr("typo"), Path: github.Ptr("README.md")},
				{User: &github.User{Login: github.Ptr("bo")}, Body: github.Ptr("nice")},
			}, &github.Response{}, nil).Once()

		page, err := client.CommitCommentsPage(context.Background(), "abc123", "")

		require.NoError(t, err)
		require.Len(t, page.Values, 2)
		assert.Equal(t, "README.md", page.Values[0].Inline.Path)
		assert.Nil(t, page.Values[1].Inline)
	})
}
