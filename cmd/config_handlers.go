package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/sahib/config"
	"github.com/urfave/cli"
)

func printConfigDocEntry(cfg *config.Config, key string) {
	entry := cfg.GetDefault(key)

	val := cfg.Uncast(key)
	if val == "" {
		val = color.YellowString("(empty)")
	}

	defaultMarker := ""
	if cfg.IsDefault(key) {
		defaultMarker = color.CyanString("(default)")
	}

	fmt.Printf("%s: %v %s\n", color.GreenString(key), val, defaultMarker)
	fmt.Printf("  Default:       %v\n", entry.Default)
	fmt.Printf("  Documentation: %v\n", entry.Docs)
	fmt.Printf("  Needs restart: %v\n", yesify(entry.NeedsRestart))
}

func handleConfigList(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	for _, key := range cfg.Keys() {
		printConfigDocEntry(cfg, key)
	}

	return nil
}

func handleConfigGet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	key := ctx.Args().First()
	if !cfg.IsValidKey(key) {
		return ExitCode{BadArgs, fmt.Sprintf("no such config key: %s", key)}
	}

	fmt.Println(cfg.Uncast(key))
	return nil
}

func handleConfigSet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	key, rawVal := ctx.Args().Get(0), ctx.Args().Get(1)
	if !cfg.IsValidKey(key) {
		return ExitCode{BadArgs, fmt.Sprintf("no such config key: %s", key)}
	}

	val, err := cfg.Cast(key, rawVal)
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := cfg.Set(key, val); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	path, err := configSavePath(ctx)
	if err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return ExitCode{UnknownError, err.Error()}
	}

	defer fd.Close()

	if err := cfg.Save(config.NewYamlEncoder(fd)); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("config save: %v", err)}
	}

	if cfg.GetDefault(key).NeedsRestart {
		fmt.Println("NOTE: Only stores opened from now on will use this value.")
	}

	return fd.Close()
}
