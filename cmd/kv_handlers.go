package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sahib/cowstore/backend/kv"
	"github.com/urfave/cli"
)

func openKV(ctx *cli.Context) (*kv.Store, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := homedir.Expand(ctx.Args().First())
	if err != nil {
		return nil, ExitCode{BadArgs, err.Error()}
	}

	store, err := kv.Open(dir, cfg.Int("kv.chunk_size"))
	if err != nil {
		return nil, ExitCode{BadSource, err.Error()}
	}

	return store, nil
}

func handleKvImport(ctx *cli.Context) error {
	store, err := openKV(ctx)
	if err != nil {
		return err
	}

	defer store.Close()

	var r io.Reader = os.Stdin
	if path := ctx.Args().Get(2); path != "" && path != "-" {
		fd, err := os.Open(path)
		if err != nil {
			return ExitCode{BadArgs, err.Error()}
		}

		defer fd.Close()
		r = fd
	}

	name := ctx.Args().Get(1)
	size, err := store.Put(name, r)
	if err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	fmt.Printf("imported %s as %s\n", humanize.IBytes(uint64(size)), name)
	return nil
}

func handleKvList(ctx *cli.Context) error {
	store, err := openKV(ctx)
	if err != nil {
		return err
	}

	defer store.Close()

	names, err := store.Names()
	if err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	for _, name := range names {
		blob := store.Blob(name)
		if err := blob.Open(); err != nil {
			return ExitCode{BadSource, err.Error()}
		}

		info, err := blob.Stat()
		if err != nil {
			return ExitCode{BadSource, err.Error()}
		}

		fmt.Printf("%-30s %10s\n", name, humanize.IBytes(uint64(info.Size)))
	}

	return nil
}

func handleKvRemove(ctx *cli.Context) error {
	store, err := openKV(ctx)
	if err != nil {
		return err
	}

	defer store.Close()

	if err := store.Remove(ctx.Args().Get(1)); err != nil {
		return ExitCode{BadSource, err.Error()}
	}

	return nil
}
