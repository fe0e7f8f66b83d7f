package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mojotech/prist/internal/commands/initcmd"
	"github.com/mojotech/prist/internal/commands/pr"
	"github.com/mojotech/prist/internal/config"
	"github.com/mojotech/prist/internal/git"
	"github.com/mojotech/prist/internal/i18n"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/ui"
	"github.com/mojotech/prist/internal/vcs/registry"
	"github.com/mojotech/prist/internal/version"
)

const languageEnv = config.EnvPrefix + "_LANGUAGE"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	translations, err := i18n.NewTranslations(config.GetLocaleConfig(os.Getenv(languageEnv)))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error loading translations: %v\n", err)
		return 1
	}

	if err := newApp(translations).Run(ctx, args); err != nil {
		ui.HandleAppError(os.Stderr, err, translations)
		return 1
	}
	return 0
}

func newApp(translations *i18n.Translations) *cli.Command {
	commands := []*cli.Command{
		initcmd.NewInitCommandFactory(git.NewGitService(), os.Stdin, os.Stdout).CreateCommand(translations),
		pr.NewPRCommandFactory(registry.NewGateway, os.Stdout).CreateCommand(translations),
	}

	return &cli.Command{
		Name:        "prist",
		Usage:       translations.GetMessage("app_usage", 0, nil),
		Version:     version.Version,
		Description: translations.GetMessage("app_description", 0, nil),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   ".",
				Usage:   translations.GetMessage("flag_path_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: translations.GetMessage("flag_debug_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   translations.GetMessage("flag_verbose_usage", 0, nil),
			},
			&cli.StringFlag{
				Name:    "lang",
				Usage:   translations.GetMessage("flag_lang_usage", 0, nil),
				Sources: cli.EnvVars(languageEnv),
			},
		},
		Before:                before(translations),
		Commands:              commands,
		EnableShellCompletion: true,
	}
}

// before installs the logger and picks the message language: --lang first,
// then the repository config.
func before(translations *i18n.Translations) cli.BeforeFunc {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		logger.Initialize(cmd.Bool("debug"), cmd.Bool("verbose"))

		lang := cmd.String("lang")
		if lang == "" {
			if cfg, err := config.LoadConfig(cmd.String("path")); err == nil {
				lang = cfg.Language
			}
		}
		if lang != "" {
			if err := translations.SetLanguage(config.GetLocaleConfig(lang)); err != nil {
				return ctx, err
			}
		}

		logger.Debug(ctx, "prist starting", "version", version.FullVersion(), "lang", lang)
		return logger.WithLogger(ctx, slog.Default()), nil
	}
}
