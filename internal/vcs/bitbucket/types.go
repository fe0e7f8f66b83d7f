package bitbucket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/models"
)

type (
	paginated[T any] struct {
		PageLen int    `json:"pagelen"`
		Values  []T    `json:"values"`
		Next    string `json:"next"`
	}

	user struct {
		DisplayName string `json:"display_name"`
		Nickname    string `json:"nickname"`
	}

	pullRequest struct {
		ID           int    `json:"id"`
		Title        string `json:"title"`
		CommentCount int    `json:"comment_count"`
		State        string `json:"state"`
		CreatedOn    string `json:"created_on"`
		UpdatedOn    string `json:"updated_on"`
		Author       user   `json:"author"`
	}

	commentContent struct {
		Raw string `json:"raw"`
	}

	inline struct {
		From *int    `json:"from"`
		To   *int    `json:"to"`
		Path *string `json:"path"`
	}

	comment struct {
		User      user           `json:"user"`
		CreatedOn string         `json:"created_on"`
		Content   commentContent `json:"content"`
		Inline    *inline        `json:"inline"`
	}

	approval struct {
		User user   `json:"user"`
		Date string `json:"date"`
	}

	commitRef struct {
		Hash string `json:"hash"`
	}

	side struct {
		Commit commitRef `json:"commit"`
	}

	update struct {
		Author      user   `json:"author"`
		Date        string `json:"date"`
		Source      side   `json:"source"`
		Destination side   `json:"destination"`
	}

	commit struct {
		Hash    string      `json:"hash"`
		Parents []commitRef `json:"parents"`
	}
)

// activity is one raw feed entry. Its shape is decided by which of the
// discriminating keys is present.
type activity struct {
	fields map[string]json.RawMessage
}

func (a *activity) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &a.fields)
}

var activityKeys = []string{"update", "approval", "comment"}

// shape returns the single discriminating key present in the entry, or "" when
// none is. More than one key is ambiguous and rejected.
func (a activity) shape() (string, error) {
	var found []string
	for _, key := range activityKeys {
		raw, ok := a.fields[key]
		if ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			found = append(found, key)
		}
	}

	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	default:
		sort.Strings(found)
		return "", domainErrors.ErrAmbiguousActivity.WithContext("keys", found)
	}
}

// toModel converts the entry. ok is false for shapes outside the three known ones.
func (a activity) toModel() (entry models.ActivityEntry, ok bool, err error) {
	key, err := a.shape()
	if err != nil || key == "" {
		return models.ActivityEntry{}, false, err
	}

	raw := a.fields[key]
	switch key {
	case "comment":
		var c comment
		if err := json.Unmarshal(raw, &c); err != nil {
			return models.ActivityEntry{}, false, decodeError(err, "comment activity")
		}
		mc, err := c.toModel()
		if err != nil {
			return models.ActivityEntry{}, false, err
		}
		return models.NewCommentActivity(mc), true, nil

	case "approval":
		var ap approval
		if err := json.Unmarshal(raw, &ap); err != nil {
			return models.ActivityEntry{}, false, decodeError(err, "approval activity")
		}
		date, err := parseTime(ap.Date)
		if err != nil {
			return models.ActivityEntry{}, false, err
		}
		return models.NewApprovalActivity(models.Approval{User: ap.User.name(), Date: date}), true, nil

	default:
		var u update
		if err := json.Unmarshal(raw, &u); err != nil {
			return models.ActivityEntry{}, false, decodeError(err, "update activity")
		}
		date, err := parseTime(u.Date)
		if err != nil {
			return models.ActivityEntry{}, false, err
		}
		return models.NewUpdateActivity(models.Update{
			Author:      u.Author.name(),
			Date:        date,
			Source:      models.Hash(u.Source.Commit.Hash),
			Destination: models.Hash(u.Destination.Commit.Hash),
		}), true, nil
	}
}

func (u user) name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Nickname
}

func (p pullRequest) toModel() (models.PullRequest, error) {
	created, err := parseTime(p.CreatedOn)
	if err != nil {
		return models.PullRequest{}, err
	}
	updated, err := parseTime(p.UpdatedOn)
	if err != nil {
		return models.PullRequest{}, err
	}
	return models.PullRequest{
		ID:           p.ID,
		Title:        p.Title,
		Author:       p.Author.name(),
		State:        p.State,
		CommentCount: p.CommentCount,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func (c comment) toModel() (models.Comment, error) {
	created, err := parseTime(c.CreatedOn)
	if err != nil {
		return models.Comment{}, err
	}

	mc := models.Comment{
		User:      c.User.name(),
		CreatedAt: created,
		Body:      c.Content.Raw,
	}
	if c.Inline != nil {
		loc := &models.InlineLocation{From: c.Inline.From, To: c.Inline.To}
		if c.Inline.Path != nil {
			loc.Path = *c.Inline.Path
		}
		mc.Inline = loc
	}
	return mc, nil
}

func (c commit) toModel() models.CommitRecord {
	parents := make([]models.Hash, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, models.Hash(p.Hash))
	}
	return models.CommitRecord{Hash: models.Hash(c.Hash), Parents: parents}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, decodeError(err, "timestamp")
	}
	return t, nil
}

func decodeError(err error, what string) error {
	return domainErrors.ErrDecode.
		WithContext("resource", what).
		WithError(fmt.Errorf("decoding %s: %w", what, err))
}
