package pr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/mojotech/prist/internal/commands/completion_helper"
	"github.com/mojotech/prist/internal/config"
	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/i18n"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/timeline"
	"github.com/mojotech/prist/internal/ui"
	"github.com/mojotech/prist/internal/vcs"
	"github.com/mojotech/prist/internal/vcs/registry"
)

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

// GatewayFactory builds the gateway for a loaded config.
type GatewayFactory func(cfg *config.Config, opts registry.Options) (vcs.Gateway, error)

type PRCommandFactory struct {
	newGateway GatewayFactory
	loadConfig func(repoPath string) (*config.Config, error)
	out        io.Writer
}

func NewPRCommandFactory(newGateway GatewayFactory, out io.Writer) *PRCommandFactory {
	return &PRCommandFactory{
		newGateway: newGateway,
		loadConfig: config.LoadConfig,
		out:        out,
	}
}

func (f *PRCommandFactory) CreateCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:      "pr",
		Usage:     t.GetMessage("pr_command_usage", 0, nil),
		ArgsUsage: t.GetMessage("pr_args_usage", 0, nil),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(ui.FormatTable),
				Usage:   t.GetMessage("pr_flag_format_usage", 0, nil),
			},
			&cli.IntFlag{
				Name:  "page-size",
				Value: timeline.DefaultPageSize,
				Usage: t.GetMessage("pr_flag_page_size_usage", 0, nil),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Value:   timeline.DefaultConcurrency,
				Usage:   t.GetMessage("pr_flag_concurrency_usage", 0, nil),
			},
			&cli.IntFlag{
				Name:  "max-walk",
				Value: timeline.DefaultMaxWalkSteps,
				Usage: t.GetMessage("pr_flag_max_walk_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: t.GetMessage("pr_flag_strict_usage", 0, nil),
			},
			&cli.IntFlag{
				Name:  "retries",
				Value: defaultRetries,
				Usage: t.GetMessage("pr_flag_retries_usage", 0, nil),
			},
		},
		ShellComplete: completion_helper.DefaultFlagComplete,
		Action:        f.prAction(t),
	}
}

func (f *PRCommandFactory) prAction(t *i18n.Translations) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		rawFormat := cmd.String("format")
		format, err := ui.ParseFormat(rawFormat)
		if err != nil {
			return domainErrors.ErrInvalidArgument.
				WithContext("format", rawFormat).
				WithError(errors.New(t.GetMessage("pr_invalid_format", 0, map[string]interface{}{"Format": rawFormat})))
		}

		if cmd.Args().Len() > 1 {
			return domainErrors.ErrInvalidArgument.
				WithError(fmt.Errorf("expected at most one pull request id, got %d arguments", cmd.Args().Len()))
		}

		repoPath := cmd.String("path")
		if repoPath == "" {
			repoPath = "."
		}

		cfg, err := f.loadConfig(repoPath)
		if err != nil {
			return err
		}

		gateway, err := f.newGateway(cfg, registry.Options{
			PageSize: cmd.Int("page-size"),
			Retries:  cmd.Int("retries"),
			Backoff:  defaultBackoff,
		})
		if err != nil {
			return err
		}

		service := timeline.NewService(gateway, timeline.Options{
			PageSize:     cmd.Int("page-size"),
			Concurrency:  cmd.Int("concurrency"),
			MaxWalkSteps: cmd.Int("max-walk"),
			Strict:       cmd.Bool("strict"),
		})
		renderer := ui.NewRenderer(f.out, format, t)
		showSpinner := format == ui.FormatTable && !color.NoColor

		if cmd.Args().Len() == 0 {
			var prs []models.PullRequest
			err := ui.WithSpinner(showSpinner, t.GetMessage("pr_fetching_list", 0, nil), func() error {
				var err error
				prs, err = service.Fetcher().ListPullRequests(ctx)
				return err
			})
			if err != nil {
				return err
			}
			return renderer.PullRequests(prs)
		}

		id, err := parseID(cmd.Args().First(), t)
		if err != nil {
			return err
		}

		var tl models.Timeline
		err = ui.WithSpinner(showSpinner, t.GetMessage("pr_building_timeline", 0, map[string]interface{}{"ID": id}), func() error {
			var err error
			tl, err = service.Build(ctx, id)
			return err
		})
		if err != nil {
			return err
		}
		return renderer.Timeline(tl)
	}
}

func parseID(raw string, t *i18n.Translations) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, domainErrors.ErrInvalidArgument.
			WithContext("id", raw).
			WithError(errors.New(t.GetMessage("pr_invalid_id", 0, map[string]interface{}{"ID": raw})))
	}
	return id, nil
}
