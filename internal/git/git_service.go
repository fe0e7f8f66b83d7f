package git

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/mojotech/prist/internal/config"
	"github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/logger"
)

const originRemote = "origin"

type GitService struct{}

func NewGitService() *GitService {
	return &GitService{}
}

// GetOriginURL returns the first URL of the origin remote of the repository
// containing repoPath.
func (s *GitService) GetOriginURL(ctx context.Context, repoPath string) (string, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return "", errors.ErrNotInGitRepo.WithContext("path", repoPath)
		}
		return "", errors.ErrNotInGitRepo.WithContext("path", repoPath).WithError(err)
	}

	remote, err := repo.Remote(originRemote)
	if err != nil {
		return "", errors.ErrNoOrigin.WithContext("path", repoPath).WithError(err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.ErrNoOrigin.
			WithContext("path", repoPath).
			WithError(fmt.Errorf("remote %q has no URL", originRemote))
	}

	logger.FromContext(ctx).Debug("origin remote found", "path", repoPath, "url", urls[0])
	return urls[0], nil
}

// GetEndpoint resolves the hosting endpoint of the repository at repoPath.
func (s *GitService) GetEndpoint(ctx context.Context, repoPath string) (config.Endpoint, error) {
	url, err := s.GetOriginURL(ctx, repoPath)
	if err != nil {
		return config.Endpoint{}, err
	}
	return config.ParseRemoteURL(url)
}
