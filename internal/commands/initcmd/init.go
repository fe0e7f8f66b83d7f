package initcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mojotech/prist/internal/commands/completion_helper"
	"github.com/mojotech/prist/internal/config"
	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/i18n"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/ui"
)

// EndpointDetector resolves the hosting endpoint of a local repository.
type EndpointDetector interface {
	GetEndpoint(ctx context.Context, repoPath string) (config.Endpoint, error)
}

type InitCommandFactory struct {
	detector EndpointDetector
	in       io.Reader
	out      io.Writer
}

func NewInitCommandFactory(detector EndpointDetector, in io.Reader, out io.Writer) *InitCommandFactory {
	return &InitCommandFactory{
		detector: detector,
		in:       in,
		out:      out,
	}
}

func (f *InitCommandFactory) CreateCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:          "init",
		Usage:         t.GetMessage("init_command_usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Action:        f.initAction(t),
	}
}

func (f *InitCommandFactory) initAction(t *i18n.Translations) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		repoPath := cmd.String("path")
		if repoPath == "" {
			repoPath = "."
		}

		endpoint, err := f.detector.GetEndpoint(ctx, repoPath)
		if err != nil {
			return err
		}
		logger.Debug(ctx, "endpoint detected", "endpoint", endpoint.String())

		ui.PrintInfo(f.out, t.GetMessage("init_detected_endpoint", 0, map[string]interface{}{
			"Kind":  endpoint.Kind,
			"Owner": endpoint.Owner,
			"Name":  endpoint.Name,
		}))

		reader := bufio.NewReader(f.in)

		username, err := prompt(reader, f.out, t.GetMessage("init_prompt_username", 0, nil))
		if err != nil {
			return err
		}

		passwordPrompt := "init_prompt_password_bitbucket"
		if endpoint.Kind == config.KindGitHub {
			passwordPrompt = "init_prompt_password_github"
		}
		password, err := prompt(reader, f.out, t.GetMessage(passwordPrompt, 0, nil))
		if err != nil {
			return err
		}

		if password == "" || (endpoint.Kind == config.KindBitbucket && username == "") {
			return domainErrors.ErrCredentialsMissing.WithContext("kind", string(endpoint.Kind))
		}

		cfg := config.New(repoPath, config.Auth{Username: username, Password: password}, endpoint)
		if lang := cmd.String("lang"); lang != "" && config.IsSupportedLanguage(lang) {
			cfg.Language = lang
		}

		if err := config.SaveConfig(cfg); err != nil {
			return err
		}

		ui.PrintSuccess(f.out, t.GetMessage("init_config_saved", 0, map[string]interface{}{
			"Path": cfg.PathFile,
		}))
		ui.PrintKeyValue(f.out, "endpoint", endpoint.String())
		ui.PrintWarning(f.out, t.GetMessage("init_gitignore_hint", 0, nil))
		return nil
	}
}

// prompt reads one line. EOF after a partial line is accepted.
func prompt(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(w, label)

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
