package config

import (
	"fmt"
	"net/url"
	"strings"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/regex"
)

// EndpointKind is the closed set of supported hosts.
type EndpointKind string

const (
	KindGitHub    EndpointKind = "github"
	KindBitbucket EndpointKind = "bitbucket"
)

var hostKinds = map[string]EndpointKind{
	"github.com":    KindGitHub,
	"bitbucket.org": KindBitbucket,
}

func (k EndpointKind) Valid() bool {
	return k == KindGitHub || k == KindBitbucket
}

// Endpoint locates a repository on its host.
type Endpoint struct {
	Kind   EndpointKind `toml:"kind"`
	Name   string       `toml:"name"`
	Owner  string       `toml:"owner"`
	APIURL string       `toml:"api_url,omitempty"`
}

// ResolveOwnerAndName returns the owner (workspace / user / org) and
// repository name, failing when either is unknown.
func (e Endpoint) ResolveOwnerAndName() (string, string, error) {
	if e.Owner == "" {
		return "", "", domainErrors.ErrOwnerMissing.WithContext("name", e.Name)
	}
	if e.Name == "" {
		return "", "", domainErrors.ErrConfigInvalid.WithError(fmt.Errorf("endpoint name is empty"))
	}
	return e.Owner, e.Name, nil
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s/%s", e.Kind, e.Owner, e.Name)
}

// ParseRemoteURL derives the endpoint from a git remote URL. It accepts
// scp-like (git@host:owner/name.git), ssh:// and http(s):// forms.
func ParseRemoteURL(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)

	var host, path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Endpoint{}, domainErrors.ErrUnsupportedHost.
				WithContext("url", raw).
				WithError(err)
		}
		host, path = u.Hostname(), u.Path
	} else if m := regex.ScpLikeRemote.FindStringSubmatch(raw); m != nil {
		host, path = m[1], m[2]
	} else {
		return Endpoint{}, domainErrors.ErrUnsupportedHost.
			WithContext("url", raw).
			WithError(fmt.Errorf("unrecognized remote URL"))
	}

	kind, ok := hostKinds[strings.ToLower(host)]
	if !ok {
		return Endpoint{}, domainErrors.ErrUnsupportedHost.WithContext("host", host)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Endpoint{}, domainErrors.ErrConfigInvalid.
			WithContext("url", raw).
			WithError(fmt.Errorf("remote path %q is not owner/name", path))
	}

	return Endpoint{
		Kind:  kind,
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
	}, nil
}
