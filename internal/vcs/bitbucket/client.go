package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/httpclient"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

var _ vcs.Gateway = (*Client)(nil)

const (
	DefaultBaseURL  = "https://api.bitbucket.org/2.0/"
	defaultPageSize = 50
	defaultBackoff  = 500 * time.Millisecond
)

// Client talks to the Bitbucket Cloud 2.0 REST API for one repository.
type Client struct {
	httpClient httpclient.HTTPClient
	baseURL    *url.URL
	owner      string
	repo       string
	username   string
	password   string
	pageSize   int
	retries    int
	backoff    time.Duration
}

type Option func(*Client) error

func WithHTTPClient(c httpclient.HTTPClient) Option {
	return func(cl *Client) error {
		cl.httpClient = c
		return nil
	}
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(raw string) Option {
	return func(cl *Client) error {
		u, err := parseBase(raw)
		if err != nil {
			return err
		}
		cl.baseURL = u
		return nil
	}
}

// WithPageSize sets the pagelen of listing requests other than the activity feed.
func WithPageSize(n int) Option {
	return func(cl *Client) error {
		if n > 0 {
			cl.pageSize = n
		}
		return nil
	}
}

// WithRetries retries rate-limited and 5xx responses n times, doubling the
// wait from backoff each attempt.
func WithRetries(n int, backoff time.Duration) Option {
	return func(cl *Client) error {
		if n < 0 {
			n = 0
		}
		cl.retries = n
		cl.backoff = backoff
		return nil
	}
}

func NewClient(owner, repo, username, password string, opts ...Option) (*Client, error) {
	base, err := parseBase(DefaultBaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: httpclient.NewDefaultHTTPClient(),
		baseURL:    base,
		owner:      owner,
		repo:       repo,
		username:   username,
		password:   password,
		pageSize:   defaultPageSize,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseBase(raw string) (*url.URL, error) {
	if raw == "" {
		raw = DefaultBaseURL
	}
	if raw[len(raw)-1] != '/' {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, domainErrors.ErrConfigInvalid.
			WithContext("api_url", raw).
			WithError(err)
	}
	return u, nil
}

func (c *Client) PullRequestsPage(ctx context.Context, cursor string) (vcs.Page[models.PullRequest], error) {
	var page paginated[pullRequest]
	if err := c.getPage(ctx, cursor, "pullrequests", c.pageSize, &page); err != nil {
		return vcs.Page[models.PullRequest]{}, err
	}

	out := make([]models.PullRequest, 0, len(page.Values))
	for _, pr := range page.Values {
		m, err := pr.toModel()
		if err != nil {
			return vcs.Page[models.PullRequest]{}, err
		}
		out = append(out, m)
	}
	return vcs.Page[models.PullRequest]{Values: out, Next: page.Next}, nil
}

func (c *Client) PullRequest(ctx context.Context, id int) (models.PullRequest, error) {
	var pr pullRequest
	if err := c.get(ctx, c.resolve(fmt.Sprintf("pullrequests/%d", id), nil), &pr); err != nil {
		return models.PullRequest{}, err
	}
	return pr.toModel()
}

func (c *Client) CommitsPage(ctx context.Context, prID int, cursor string) (vcs.Page[models.Hash], error) {
	var page paginated[commit]
	if err := c.getPage(ctx, cursor, fmt.Sprintf("pullrequests/%d/commits", prID), c.pageSize, &page); err != nil {
		return vcs.Page[models.Hash]{}, err
	}

	out := make([]models.Hash, 0, len(page.Values))
	for _, cm := range page.Values {
		out = append(out, models.Hash(cm.Hash))
	}
	return vcs.Page[models.Hash]{Values: out, Next: page.Next}, nil
}

func (c *Client) ActivityPage(ctx context.Context, prID int, pageSize int, cursor string) (vcs.Page[models.ActivityEntry], error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var page paginated[activity]
	if err := c.getPage(ctx, cursor, fmt.Sprintf("pullrequests/%d/activity", prID), pageSize, &page); err != nil {
		return vcs.Page[models.ActivityEntry]{}, err
	}

	log := logger.FromContext(ctx)
	out := make([]models.ActivityEntry, 0, len(page.Values))
	for i, a := range page.Values {
		entry, ok, err := a.toModel()
		if err != nil {
			var appErr *domainErrors.AppError
			if errors.As(err, &appErr) {
				return vcs.Page[models.ActivityEntry]{}, appErr.WithContext("pr_id", prID).WithContext("index", i)
			}
			return vcs.Page[models.ActivityEntry]{}, err
		}
		if !ok {
			log.Debug("skipping activity entry of unknown shape", "pr_id", prID, "index", i)
			continue
		}
		out = append(out, entry)
	}
	return vcs.Page[models.ActivityEntry]{Values: out, Next: page.Next}, nil
}

func (c *Client) Commit(ctx context.Context, hash models.Hash) (models.CommitRecord, error) {
	var cm commit
	if err := c.get(ctx, c.resolve("commit/"+hash.String(), nil), &cm); err != nil {
		return models.CommitRecord{}, err
	}
	return cm.toModel(), nil
}

// MergeBase uses the merge-base resource, which takes the two revisions as a "a..b" range.
func (c *Client) MergeBase(ctx context.Context, a, b models.Hash) (models.CommitRecord, error) {
	revs := a.String() + ".." + b.String()
	var cm commit
	if err := c.get(ctx, c.resolve("merge-base/"+revs, nil), &cm); err != nil {
		return models.CommitRecord{}, err
	}
	return cm.toModel(), nil
}

func (c *Client) CommitCommentsPage(ctx context.Context, hash models.Hash, cursor string) (vcs.Page[models.Comment], error) {
	var page paginated[comment]
	path := "commit/" + hash.String() + "/comments"
	if err := c.getPage(ctx, cursor, path, c.pageSize, &page); err != nil {
		return vcs.Page[models.Comment]{}, err
	}

	out := make([]models.Comment, 0, len(page.Values))
	for _, cm := range page.Values {
		m, err := cm.toModel()
		if err != nil {
			return vcs.Page[models.Comment]{}, err
		}
		out = append(out, m)
	}
	return vcs.Page[models.Comment]{Values: out, Next: page.Next}, nil
}

// resolve builds the URL of a repository resource.
func (c *Client) resolve(resource string, query url.Values) string {
	rel := &url.URL{Path: "repositories/" + c.owner + "/" + c.repo + "/" + resource}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// getPage fetches the first page of resource, or the page at cursor. The
// cursor is the absolute "next" link returned by the previous page.
func (c *Client) getPage(ctx context.Context, cursor, resource string, pageSize int, out any) error {
	target := cursor
	if target == "" {
		target = c.resolve(resource, url.Values{"pagelen": {strconv.Itoa(pageSize)}})
	}
	return c.get(ctx, target, out)
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	log := logger.FromContext(ctx)

	wait := c.backoff
	for attempt := 0; ; attempt++ {
		status, body, err := c.do(ctx, target)
		if err != nil {
			return err
		}

		if status >= 200 && status < 300 {
			if err := json.Unmarshal(body, out); err != nil {
				return domainErrors.ErrDecode.
					WithContext("url", target).
					WithError(err)
			}
			return nil
		}

		if retryable(status) && attempt < c.retries {
			log.Warn("bitbucket request will be retried",
				"url", target,
				"status", status,
				"attempt", attempt+1,
				"wait_ms", wait.Milliseconds())
			select {
			case <-ctx.Done():
				return domainErrors.ErrRequestFailed.WithContext("url", target).WithError(ctx.Err())
			case <-time.After(wait):
			}
			wait *= 2
			continue
		}

		return statusError(status, target, body)
	}
}

func (c *Client) do(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, domainErrors.ErrRequestFailed.WithContext("url", target).WithError(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, domainErrors.ErrRequestFailed.WithContext("url", target).WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domainErrors.ErrRequestFailed.WithContext("url", target).WithError(err)
	}

	logger.FromContext(ctx).Debug("bitbucket request",
		"url", target,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	return resp.StatusCode, body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func statusError(status int, target string, body []byte) error {
	var base *domainErrors.AppError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = domainErrors.ErrUnauthorized
	case status == http.StatusNotFound:
		base = domainErrors.ErrNotFound
	case status == http.StatusTooManyRequests:
		base = domainErrors.ErrRateLimit
	default:
		base = domainErrors.ErrRequestFailed
	}

	appErr := base.WithContext("status", status).WithContext("url", target)
	if msg := apiErrorMessage(body); msg != "" {
		appErr = appErr.WithError(errors.New(msg))
	}
	return appErr
}

// apiErrorMessage extracts error.message from a Bitbucket error body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}
