package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sahib/cowstore/backend/compress"
	"github.com/sahib/cowstore/util"
	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"
)

type statInfo struct {
	Source   string `yaml:"source"`
	Size     int64  `yaml:"size"`
	PageSize int64  `yaml:"page_size"`
	Pages    int64  `yaml:"pages"`
}

func handleStat(ctx *cli.Context) error {
	arg := ctx.Args().First()
	st, closer, err := openStore(ctx, arg)
	if err != nil {
		return err
	}

	defer closer.Close()

	info, err := st.Stat()
	if err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	stat := statInfo{
		Source:   arg,
		Size:     info.Size,
		PageSize: st.PageSize(),
		Pages:    util.CeilDiv64(info.Size, st.PageSize()),
	}

	if ctx.Bool("yaml") {
		data, err := yaml.Marshal(stat)
		if err != nil {
			return ExitCode{UnknownError, err.Error()}
		}

		_, err = os.Stdout.Write(data)
		return err
	}

	fmt.Printf("Source:    %s\n", stat.Source)
	fmt.Printf("Size:      %s (%d bytes)\n", humanize.IBytes(uint64(stat.Size)), stat.Size)
	fmt.Printf("Page size: %s\n", humanize.IBytes(uint64(stat.PageSize)))
	fmt.Printf("Pages:     %d\n", stat.Pages)
	return nil
}

func handleCat(ctx *cli.Context) error {
	st, closer, err := openStore(ctx, ctx.Args().First())
	if err != nil {
		return err
	}

	defer closer.Close()

	size := st.Size()
	off, err := parseNumber(ctx.String("offset"))
	if err != nil || off > size {
		return ExitCode{BadArgs, fmt.Sprintf("bad offset: %s", ctx.String("offset"))}
	}

	length := size - off
	if ctx.IsSet("length") {
		if length, err = parseNumber(ctx.String("length")); err != nil {
			return ExitCode{BadArgs, fmt.Sprintf("bad length: %v", err)}
		}
	}

	if util.SaturatingAdd64(off, length) > size {
		return ExitCode{BadArgs, fmt.Sprintf("range exceeds size of %d bytes", size)}
	}

	if _, err := io.Copy(os.Stdout, io.NewSectionReader(st, off, length)); err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	return nil
}

func openScript(path string) (io.ReadCloser, error) {
	if path == "-" {
		return os.Stdin, nil
	}

	return os.Open(path)
}

func handleApply(ctx *cli.Context) error {
	st, closer, err := openStore(ctx, ctx.Args().First())
	if err != nil {
		return err
	}

	defer closer.Close()

	fd, err := openScript(ctx.Args().Get(1))
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	defer fd.Close()

	ops, err := parseScript(fd)
	if err != nil {
		return ExitCode{BadScript, err.Error()}
	}

	if err := runScript(st, ops, os.Stdout); err != nil {
		return ExitCode{BadScript, err.Error()}
	}

	usage := st.Usage()
	logVerbose(
		ctx,
		"applied %d ops: %d -> %d bytes, %d pages (%s) modified",
		len(ops),
		st.OriginalSize(),
		st.Size(),
		usage.Pages,
		humanize.IBytes(uint64(usage.Bytes)),
	)

	output := ctx.String("output")
	if output == "" {
		return nil
	}

	return writeOutput(st, output, ctx.String("algo"))
}

// writeOutput dumps `src` to `path`. If `algo` is not empty,
// the output is a compressed container.
func writeOutput(src io.WriterTo, path, algo string) error {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	defer fd.Close()

	if algo == "" {
		if _, err := src.WriteTo(fd); err != nil {
			return ExitCode{BadSource, err.Error()}
		}

		return fd.Close()
	}

	algoType, err := compress.AlgoFromString(algo)
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("%v: %s", err, algo)}
	}

	zipW, err := compress.NewWriter(fd, algoType)
	if err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	if _, err := src.WriteTo(zipW); err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	if err := zipW.Close(); err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	return fd.Close()
}

func handlePack(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	algo := ctx.String("algo")
	if algo == "" {
		algo = cfg.String("compress.default_algo")
	}

	st, closer, err := openStore(ctx, ctx.Args().First())
	if err != nil {
		return err
	}

	defer closer.Close()

	output := ctx.Args().Get(1)
	if err := writeOutput(st, output, algo); err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	fmt.Printf(
		"packed %s to %s with %s (%.1f%%)\n",
		humanize.IBytes(uint64(st.Size())),
		humanize.IBytes(uint64(info.Size())),
		algo,
		100*float64(info.Size())/float64(util.Max64(st.Size(), 1)),
	)

	return nil
}
