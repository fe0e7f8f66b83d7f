package completion_helper

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestDefaultFlagComplete(t *testing.T) {
	t.Run("should print short and long flag names", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &cli.Command{
			Name:   "pr",
			Writer: &buf,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "format", Aliases: []string{"f"}},
				&cli.BoolFlag{Name: "strict"},
			},
		}

		DefaultFlagComplete(context.Background(), cmd)

		assert.Equal(t, "--format\n-f\n--strict\n", buf.String())
	})
}
