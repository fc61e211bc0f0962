package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sahib/config"
	"github.com/sahib/cowstore/defaults"
	"github.com/sahib/cowstore/overlay"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const defaultConfigPath = "~/.config/cowstore/config.yml"

// ExitCode is an error that maps the error interface to a specific error
// message and a unix exit code
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

func yesify(val bool) string {
	if val {
		return color.GreenString("yes")
	}

	return color.RedString("no")
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if code := checker(ctx); code != Success {
			return ExitCode{Code: code, Message: ""}
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}

// configSavePath returns where `config set` writes to.
func configSavePath(ctx *cli.Context) (string, error) {
	return homedir.Expand(ctx.GlobalString("config"))
}

// configPath returns the config to use. The default location
// is only used when it exists.
func configPath(ctx *cli.Context) (string, error) {
	path, err := configSavePath(ctx)
	if err != nil {
		return "", err
	}

	if ctx.GlobalIsSet("config") {
		return path, nil
	}

	if _, err := os.Stat(path); err != nil {
		return "", nil
	}

	return path, nil
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path, err := configPath(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := defaults.Open(path)
	if err != nil {
		return nil, ExitCode{BadArgs, fmt.Sprintf("failed to load config: %v", err)}
	}

	return cfg, nil
}

// pageSize returns --page-size if given, overlay.page_size otherwise.
func pageSize(ctx *cli.Context, cfg *config.Config) (int64, error) {
	if sizeArg := ctx.GlobalString("page-size"); sizeArg != "" {
		size, err := humanize.ParseBytes(sizeArg)
		if err != nil || size == 0 {
			return 0, ExitCode{BadArgs, fmt.Sprintf("bad page size: %s", sizeArg)}
		}

		return int64(size), nil
	}

	return defaults.PageSize(cfg)
}

// openStore opens an overlay on top of the source `arg`.
// The returned closer has to be called when done.
func openStore(ctx *cli.Context, arg string) (*overlay.Store, io.Closer, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	size, err := pageSize(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	spec, err := parseSource(arg)
	if err != nil {
		return nil, nil, ExitCode{BadArgs, err.Error()}
	}

	b, closer, err := openSource(spec, cfg.Int("kv.chunk_size"))
	if err != nil {
		return nil, nil, ExitCode{BadSource, err.Error()}
	}

	logVerbose(ctx, "opening %s with page size %s", spec, humanize.IBytes(uint64(size)))
	st := overlay.New(b, overlay.Options{PageSize: size})
	if err := st.Open(); err != nil {
		closer.Close()
		return nil, nil, ExitCode{BadSource, err.Error()}
	}

	return st, closer, nil
}
