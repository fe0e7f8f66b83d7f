package registry

import (
	"time"

	"github.com/mojotech/prist/internal/config"
	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/vcs"
	"github.com/mojotech/prist/internal/vcs/bitbucket"
	"github.com/mojotech/prist/internal/vcs/github"
)

// Options tune the gateway built for an endpoint.
type Options struct {
	PageSize int
	Retries  int
	Backoff  time.Duration
}

// NewGateway builds the gateway for the configured endpoint kind.
func NewGateway(cfg *config.Config, opts Options) (vcs.Gateway, error) {
	owner, name, err := cfg.Endpoint.ResolveOwnerAndName()
	if err != nil {
		return nil, err
	}

	switch cfg.Endpoint.Kind {
	case config.KindBitbucket:
		bbOpts := []bitbucket.Option{
			bitbucket.WithPageSize(opts.PageSize),
			bitbucket.WithRetries(opts.Retries, opts.Backoff),
		}
		if cfg.Endpoint.APIURL != "" {
			bbOpts = append(bbOpts, bitbucket.WithBaseURL(cfg.Endpoint.APIURL))
		}
		client, err := bitbucket.NewClient(owner, name, cfg.Auth.Username, cfg.Auth.Password, bbOpts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.KindGitHub:
		client, err := github.NewGitHubClient(owner, name, cfg.Auth.Password, cfg.Endpoint.APIURL)
		if err != nil {
			return nil, err
		}
		client.SetPerPage(opts.PageSize)
		return client, nil

	default:
		return nil, domainErrors.ErrUnsupportedHost.WithContext("kind", string(cfg.Endpoint.Kind))
	}
}
