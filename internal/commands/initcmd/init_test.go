package initcmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/mojotech/prist/internal/config"
	domainErrors "github.com/mojotech/prist/internal/errors"
	gitService "github.com/mojotech/prist/internal/git"
	"github.com/mojotech/prist/internal/i18n"
)

type fakeDetector struct {
	endpoint config.Endpoint
	err      error
}

func (d fakeDetector) GetEndpoint(context.Context, string) (config.Endpoint, error) {
	return d.endpoint, d.err
}

func runInit(t *testing.T, detector EndpointDetector, input string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	translations, err := i18n.NewTranslations("en")
	require.NoError(t, err)

	var out bytes.Buffer
	app := &cli.Command{
		Name: "prist",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Value: "."},
			&cli.StringFlag{Name: "lang"},
		},
		Commands: []*cli.Command{
			NewInitCommandFactory(detector, strings.NewReader(input), &out).CreateCommand(translations),
		},
	}

	err = app.Run(context.Background(), append([]string{"prist"}, args...))
	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	t.Run("should save the detected endpoint and credentials", func(t *testing.T) {
		dir := t.TempDir()
		detector := fakeDetector{endpoint: config.Endpoint{Kind: config.KindBitbucket, Owner: "mojotech", Name: "prist"}}

		out, err := runInit(t, detector, "amy\nsecret\n", "--path", dir, "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Detected bitbucket repository mojotech/prist")
		assert.Contains(t, out, "App password: ")
		assert.Contains(t, out, "Configuration saved to")
		assert.Contains(t, out, "endpoint: bitbucket:mojotech/prist")
		assert.Contains(t, out, ".gitignore")

		cfg, err := config.LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "amy", cfg.Auth.Username)
		assert.Equal(t, "secret", cfg.Auth.Password)
		assert.Equal(t, config.KindBitbucket, cfg.Endpoint.Kind)
		assert.Equal(t, "mojotech", cfg.Endpoint.Owner)
		assert.Equal(t, "en", cfg.Language)
	})

	t.Run("should ask for a token on github and keep the language flag", func(t *testing.T) {
		dir := t.TempDir()
		detector := fakeDetector{endpoint: config.Endpoint{Kind: config.KindGitHub, Owner: "mojotech", Name: "prist"}}

		out, err := runInit(t, detector, "\nghp_token", "--path", dir, "--lang", "es", "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Personal access token: ")

		cfg, err := config.LoadConfig(dir)
		require.NoError(t, err)
		assert.Empty(t, cfg.Auth.Username)
		assert.Equal(t, "ghp_token", cfg.Auth.Password)
		assert.Equal(t, "es", cfg.Language)
	})

	t.Run("should fail without a password", func(t *testing.T) {
		dir := t.TempDir()
		detector := fakeDetector{endpoint: config.Endpoint{Kind: config.KindBitbucket, Owner: "mojotech", Name: "prist"}}

		_, err := runInit(t, detector, "amy\n\n", "--path", dir, "init")

		assert.ErrorIs(t, err, domainErrors.ErrCredentialsMissing)
		_, loadErr := config.LoadConfig(dir)
		assert.ErrorIs(t, loadErr, domainErrors.ErrConfigMissing)
	})

	t.Run("should return detection errors", func(t *testing.T) {
		detector := fakeDetector{err: domainErrors.ErrNoOrigin}

		_, err := runInit(t, detector, "", "--path", t.TempDir(), "init")

		assert.ErrorIs(t, err, domainErrors.ErrNoOrigin)
	})

	t.Run("should detect the endpoint of a real repository", func(t *testing.T) {
		dir := t.TempDir()
		repo, err := git.PlainInit(dir, false)
		require.NoError(t, err)
		_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: "origin",
			URLs: []string{"git@github.com:mojotech/prist.git"},
		})
		require.NoError(t, err)

		_, err = runInit(t, gitService.NewGitService(), "amy\ntoken\n", "--path", dir, "init")

		require.NoError(t, err)
		cfg, err := config.LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, config.KindGitHub, cfg.Endpoint.Kind)
		assert.Equal(t, "prist", cfg.Endpoint.Name)
	})
}
