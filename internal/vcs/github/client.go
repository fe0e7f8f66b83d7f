package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

var _ vcs.Gateway = (*GitHubClient)(nil)

const (
	defaultPerPage  = 50
	eventForcePush  = "head_ref_force_pushed"
	reviewApproved  = "APPROVED"
	stateOpen       = "open"
	cursorSeparator = ":"
)

type PullRequestsService interface {
	List(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
	Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
	ListCommits(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error)
	ListReviews(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.PullRequestReview, *github.Response, error)
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.PullRequestListCommentsOptions) ([]*github.PullRequestComment, *github.Response, error)
}

type IssuesService interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	ListIssueTimeline(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.Timeline, *github.Response, error)
}

type RepositoriesService interface {
	GetCommit(ctx context.Context, owner, repo, sha string, opts *github.ListOptions) (*github.RepositoryCommit, *github.Response, error)
	CompareCommits(ctx context.Context, owner, repo, base, head string, opts *github.ListOptions) (*github.CommitsComparison, *github.Response, error)
	ListCommitComments(ctx context.Context, owner, repo, sha string, opts *github.ListOptions) ([]*github.RepositoryComment, *github.Response, error)
}

type GitHubClient struct {
	prService     PullRequestsService
	issuesService IssuesService
	repoService   RepositoriesService
	owner         string
	repo          string
	perPage       int

	mu       sync.Mutex
	baseSHAs map[int]string
}

// NewGitHubClient builds a client authenticated with a personal access token.
// apiURL overrides the API root, e.g. for GitHub Enterprise; empty keeps api.github.com.
func NewGitHubClient(owner, repo, token, apiURL string) (*GitHubClient, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, domainErrors.ErrConfigInvalid.
				WithContext("api_url", apiURL).
				WithError(err)
		}
		client.BaseURL = base
	}

	return NewGitHubClientWithServices(client.PullRequests, client.Issues, client.Repositories, owner, repo), nil
}

func NewGitHubClientWithServices(
	prService PullRequestsService,
	issuesService IssuesService,
	repoService RepositoriesService,
	owner, repo string,
) *GitHubClient {
	return &GitHubClient{
		prService:     prService,
		issuesService: issuesService,
		repoService:   repoService,
		owner:         owner,
		repo:          repo,
		perPage:       defaultPerPage,
		baseSHAs:      make(map[int]string),
	}
}

// SetPerPage sets the page size of listings other than the activity feed.
func (ghc *GitHubClient) SetPerPage(n int) {
	if n > 0 {
		ghc.perPage = n
	}
}

func (ghc *GitHubClient) PullRequestsPage(ctx context.Context, cursor string) (vcs.Page[models.PullRequest], error) {
	page, err := parsePage(cursor)
	if err != nil {
		return vcs.Page[models.PullRequest]{}, err
	}

	prs, resp, err := ghc.prService.List(ctx, ghc.owner, ghc.repo, &github.PullRequestListOptions{
		State:       stateOpen,
		ListOptions: github.ListOptions{Page: page, PerPage: ghc.perPage},
	})
	if err != nil {
		return vcs.Page[models.PullRequest]{}, ghc.wrapError(ctx, err, resp, "list pull requests")
	}

	out := make([]models.PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toPullRequest(pr))
	}
	return vcs.Page[models.PullRequest]{Values: out, Next: nextCursor("", resp)}, nil
}

func (ghc *GitHubClient) PullRequest(ctx context.Context, id int) (models.PullRequest, error) {
	pr, err := ghc.getPR(ctx, id)
	if err != nil {
		return models.PullRequest{}, err
	}
	return toPullRequest(pr), nil
}

func (ghc *GitHubClient) getPR(ctx context.Context, id int) (*github.PullRequest, error) {
	logger.FromContext(ctx).Debug("fetching github pull request",
		"owner", ghc.owner,
		"repo", ghc.repo,
		"pr_id", id)

	pr, resp, err := ghc.prService.Get(ctx, ghc.owner, ghc.repo, id)
	if err != nil {
		return nil, ghc.wrapError(ctx, err, resp, "get pull request").WithContext("pr_id", id)
	}

	ghc.mu.Lock()
	ghc.baseSHAs[id] = pr.GetBase().GetSHA()
	ghc.mu.Unlock()
	return pr, nil
}

func (ghc *GitHubClient) CommitsPage(ctx context.Context, prID int, cursor string) (vcs.Page[models.Hash], error) {
	page, err := parsePage(cursor)
	if err != nil {
		return vcs.Page[models.Hash]{}, err
	}

	commits, resp, err := ghc.prService.ListCommits(ctx, ghc.owner, ghc.repo, prID, &github.ListOptions{Page: page, PerPage: ghc.perPage})
	if err != nil {
		return vcs.Page[models.Hash]{}, ghc.wrapError(ctx, err, resp, "list pull request commits").WithContext("pr_id", prID)
	}

	out := make([]models.Hash, 0, len(commits))
	for _, c := range commits {
		out = append(out, models.Hash(c.GetSHA()))
	}
	return vcs.Page[models.Hash]{Values: out, Next: nextCursor("", resp)}, nil
}

// activityStages are the listings merged into one activity feed, in order.
var activityStages = []string{"comments", "review_comments", "reviews", "timeline"}

// ActivityPage walks issue comments, inline review comments, reviews and
// the issue timeline in turn. The cursor is "<stage>:<page>".
func (ghc *GitHubClient) ActivityPage(ctx context.Context, prID int, pageSize int, cursor string) (vcs.Page[models.ActivityEntry], error) {
	if pageSize <= 0 {
		pageSize = defaultPerPage
	}

	stage, page, err := parseActivityCursor(cursor)
	if err != nil {
		return vcs.Page[models.ActivityEntry]{}, err
	}
	opts := github.ListOptions{Page: page, PerPage: pageSize}

	var (
		out  []models.ActivityEntry
		resp *github.Response
	)
	switch activityStages[stage] {
	case "comments":
		var comments []*github.IssueComment
		comments, resp, err = ghc.issuesService.ListComments(ctx, ghc.owner, ghc.repo, prID, &github.IssueListCommentsOptions{ListOptions: opts})
		for _, c := range comments {
			out = append(out, models.NewCommentActivity(models.Comment{
				User:      userName(c.GetUser()),
				CreatedAt: c.GetCreatedAt().Time,
				Body:      c.GetBody(),
			}))
		}

	case "review_comments":
		var comments []*github.PullRequestComment
		comments, resp, err = ghc.prService.ListComments(ctx, ghc.owner, ghc.repo, prID, &github.PullRequestListCommentsOptions{ListOptions: opts})
		for _, c := range comments {
			out = append(out, models.NewCommentActivity(models.Comment{
				User:      userName(c.GetUser()),
				CreatedAt: c.GetCreatedAt().Time,
				Body:      c.GetBody(),
				Inline:    inlineLocation(c.GetPath(), c.StartLine, c.Line),
			}))
		}

	case "reviews":
		var reviews []*github.PullRequestReview
		reviews, resp, err = ghc.prService.ListReviews(ctx, ghc.owner, ghc.repo, prID, &opts)
		for _, r := range reviews {
			if entry, ok := reviewActivity(r); ok {
				out = append(out, entry)
			}
		}

	default:
		out, resp, err = ghc.timelinePage(ctx, prID, opts)
	}
	if err != nil {
		return vcs.Page[models.ActivityEntry]{}, ghc.wrapError(ctx, err, resp, "list "+activityStages[stage]).WithContext("pr_id", prID)
	}

	next := nextCursor(activityStages[stage], resp)
	if next == "" && stage+1 < len(activityStages) {
		next = activityStages[stage+1] + cursorSeparator + "1"
	}
	return vcs.Page[models.ActivityEntry]{Values: out, Next: next}, nil
}

// timelinePage maps force-push events to updates. The destination is the PR's
// current base SHA, not the base at push time.
func (ghc *GitHubClient) timelinePage(ctx context.Context, prID int, opts github.ListOptions) ([]models.ActivityEntry, *github.Response, error) {
	events, resp, err := ghc.issuesService.ListIssueTimeline(ctx, ghc.owner, ghc.repo, prID, &opts)
	if err != nil {
		return nil, resp, err
	}

	var out []models.ActivityEntry
	for _, ev := range events {
		if ev.GetEvent() != eventForcePush {
			continue
		}
		base, err := ghc.baseSHA(ctx, prID)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, models.NewUpdateActivity(models.Update{
			Author:      userName(ev.GetActor()),
			Date:        ev.GetCreatedAt().Time,
			Source:      models.Hash(ev.GetCommitID()),
			Destination: models.Hash(base),
		}))
	}
	return out, resp, nil
}

// baseSHA returns the base commit of the PR, fetching the PR once.
func (ghc *GitHubClient) baseSHA(ctx context.Context, prID int) (string, error) {
	ghc.mu.Lock()
	sha, ok := ghc.baseSHAs[prID]
	ghc.mu.Unlock()
	if ok {
		return sha, nil
	}

	pr, err := ghc.getPR(ctx, prID)
	if err != nil {
		return "", err
	}
	return pr.GetBase().GetSHA(), nil
}

func (ghc *GitHubClient) Commit(ctx context.Context, hash models.Hash) (models.CommitRecord, error) {
	c, resp, err := ghc.repoService.GetCommit(ctx, ghc.owner, ghc.repo, hash.String(), nil)
	if err != nil {
		return models.CommitRecord{}, ghc.wrapError(ctx, err, resp, "get commit").WithContext("hash", hash.String())
	}
	return toCommitRecord(c), nil
}

func (ghc *GitHubClient) MergeBase(ctx context.Context, a, b models.Hash) (models.CommitRecord, error) {
	cmp, resp, err := ghc.repoService.CompareCommits(ctx, ghc.owner, ghc.repo, b.String(), a.String(), &github.ListOptions{PerPage: 1})
	if err != nil {
		return models.CommitRecord{}, ghc.wrapError(ctx, err, resp, "compare commits").
			WithContext("source", a.String()).
			WithContext("destination", b.String())
	}
	return toCommitRecord(cmp.GetMergeBaseCommit()), nil
}

func (ghc *GitHubClient) CommitCommentsPage(ctx context.Context, hash models.Hash, cursor string) (vcs.Page[models.Comment], error) {
	page, err := parsePage(cursor)
	if err != nil {
		return vcs.Page[models.Comment]{}, err
	}

	comments, resp, err := ghc.repoService.ListCommitComments(ctx, ghc.owner, ghc.repo, hash.String(), &github.ListOptions{Page: page, PerPage: ghc.perPage})
	if err != nil {
		return vcs.Page[models.Comment]{}, ghc.wrapError(ctx, err, resp, "list commit comments").WithContext("hash", hash.String())
	}

	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		var inline *models.InlineLocation
		if c.GetPath() != "" {
			inline = &models.InlineLocation{Path: c.GetPath()}
		}
		out = append(out, models.Comment{
			User:      userName(c.GetUser()),
			CreatedAt: c.GetCreatedAt().Time,
			Body:      c.GetBody(),
			Inline:    inline,
		})
	}
	return vcs.Page[models.Comment]{Values: out, Next: nextCursor("", resp)}, nil
}

func (ghc *GitHubClient) wrapError(ctx context.Context, err error, resp *github.Response, operation string) *domainErrors.AppError {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	base := domainErrors.ErrRequestFailed
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		base = domainErrors.ErrRateLimit
	case resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		base = domainErrors.ErrUnauthorized
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		base = domainErrors.ErrNotFound
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		base = domainErrors.ErrRateLimit
	}

	logger.FromContext(ctx).Debug("github request failed",
		"error", err,
		"operation", operation,
		"owner", ghc.owner,
		"repo", ghc.repo)

	wrapped := base.
		WithContext("operation", operation).
		WithContext("repo", fmt.Sprintf("%s/%s", ghc.owner, ghc.repo)).
		WithError(err)
	if resp != nil {
		wrapped = wrapped.WithContext("status", resp.StatusCode)
	}
	return wrapped
}

func toPullRequest(pr *github.PullRequest) models.PullRequest {
	return models.PullRequest{
		ID:           pr.GetNumber(),
		Title:        pr.GetTitle(),
		Author:       userName(pr.GetUser()),
		State:        strings.ToUpper(pr.GetState()),
		CommentCount: pr.GetComments() + pr.GetReviewComments(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}
}

func toCommitRecord(c *github.RepositoryCommit) models.CommitRecord {
	if c == nil {
		return models.CommitRecord{}
	}
	parents := make([]models.Hash, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, models.Hash(p.GetSHA()))
	}
	return models.CommitRecord{Hash: models.Hash(c.GetSHA()), Parents: parents}
}

// reviewActivity maps an approval to an Approval and any other review with a
// body to a Comment. Empty non-approving reviews carry nothing to show.
func reviewActivity(r *github.PullRequestReview) (models.ActivityEntry, bool) {
	if r.GetState() == reviewApproved {
		return models.NewApprovalActivity(models.Approval{
			User: userName(r.GetUser()),
			Date: r.GetSubmittedAt().Time,
		}), true
	}
	if r.GetBody() == "" {
		return models.ActivityEntry{}, false
	}
	return models.NewCommentActivity(models.Comment{
		User:      userName(r.GetUser()),
		CreatedAt: r.GetSubmittedAt().Time,
		Body:      r.GetBody(),
	}), true
}

func inlineLocation(path string, from, to *int) *models.InlineLocation {
	return &models.InlineLocation{Path: path, From: from, To: to}
}

func userName(u *github.User) string {
	if name := u.GetName(); name != "" {
		return name
	}
	return u.GetLogin()
}

func parsePage(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, domainErrors.ErrRequestFailed.
			WithContext("cursor", cursor).
			WithError(fmt.Errorf("invalid page cursor %q", cursor))
	}
	return page, nil
}

func parseActivityCursor(cursor string) (int, int, error) {
	if cursor == "" {
		return 0, 0, nil
	}
	name, rawPage, ok := strings.Cut(cursor, cursorSeparator)
	if ok {
		for i, stage := range activityStages {
			if stage != name {
				continue
			}
			page, err := parsePage(rawPage)
			if err != nil {
				return 0, 0, err
			}
			return i, page, nil
		}
	}
	return 0, 0, domainErrors.ErrRequestFailed.
		WithContext("cursor", cursor).
		WithError(fmt.Errorf("invalid activity cursor %q", cursor))
}

func nextCursor(stage string, resp *github.Response) string {
	if resp == nil || resp.NextPage == 0 {
		return ""
	}
	if stage == "" {
		return strconv.Itoa(resp.NextPage)
	}
	return stage + cursorSeparator + strconv.Itoa(resp.NextPage)
}
