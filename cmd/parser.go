package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sahib/cowstore"
	"github.com/sahib/cowstore/backend/compress"
	colorlog "github.com/sahib/cowstore/util/log"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

// setupLogging applies --log-level (or log.level) and log.colors.
func setupLogging(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	level := cfg.String("log.level")
	if ctx.GlobalIsSet("log-level") {
		level = ctx.GlobalString("log-level")
	}

	if ctx.GlobalBool("verbose") {
		level = "debug"
	}

	useColors := cfg.Bool("log.colors")
	if err := colorlog.Setup(os.Stderr, level, useColors); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad log level: %v", err)}
	}

	return nil
}

// exitCodeOf maps errors returned by handlers to process exit codes.
func exitCodeOf(err error) int {
	if err == nil {
		return Success
	}

	if exitErr, ok := err.(ExitCode); ok {
		if exitErr.Message != "" {
			log.Error(exitErr.Message)
		}

		return exitErr.Code
	}

	log.Error(err)
	return UnknownError
}

////////////////////////////
// Commandline definition //
////////////////////////////

// RunCmdline starts a cowstore commandline tool.
func RunCmdline(args []string) int {
	app := cli.NewApp()
	app.Name = "cowstore"
	app.Usage = "Copy-on-write overlays over read-only data"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf(
		"%s [buildtime: %s]",
		cowstore.VersionString(),
		cowstore.BuildTime,
	)
	app.CommandNotFound = commandNotFound

	// Groups:
	storeGroup := formatGroup("store")
	kvGroup := formatGroup("key value")
	miscGroup := formatGroup("misc")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path of the config file",
			Value:  defaultConfigPath,
			EnvVar: "COWSTORE_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level,l",
			Usage:  "Only log messages with this level or above (overrides log.level)",
			EnvVar: "COWSTORE_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:  "page-size,p",
			Usage: "Size of an overlay page, like 4K (overrides overlay.page_size)",
		},
		cli.BoolFlag{
			Name:  "verbose,V",
			Usage: "Print what is being done",
		},
	}

	sourceHelp := "<source> is PATH, file:PATH, zip:PATH, kv:DIR#NAME or mem:TEXT"

	app.Commands = []cli.Command{
		{
			Name:        "stat",
			Category:    storeGroup,
			Usage:       "Show the size of a source",
			ArgsUsage:   "<source>",
			Description: sourceHelp,
			Action:      withArgCheck(needAtLeast(1), handleStat),
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "yaml,y",
					Usage: "Print as YAML",
				},
			},
		},
		{
			Name:        "cat",
			Category:    storeGroup,
			Usage:       "Print (a range of) a source to stdout",
			ArgsUsage:   "<source>",
			Description: sourceHelp,
			Action:      withArgCheck(needAtLeast(1), handleCat),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "offset,o",
					Value: "0",
					Usage: "Where to start printing",
				},
				cli.StringFlag{
					Name:  "length,n",
					Usage: "How many bytes to print (default: until the end)",
				},
			},
		},
		{
			Name:      "apply",
			Category:  storeGroup,
			Usage:     "Run a script of modifications on an overlay",
			ArgsUsage: "<source> <script|->",
			Description: sourceHelp + `

   The source itself is never modified. Each script line is one of:

     write <off> <data>      (data may be a Go quoted string)
     del <off> <len|end>
     truncate <size>
     read <off> <len>
     stat

   Use --output to save the modified result.`,
			Action: withArgCheck(needAtLeast(2), handleApply),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output,o",
					Usage: "Write the modified content to this file",
				},
				cli.StringFlag{
					Name:  "algo,a",
					Usage: "Compress --output with one of: " + strings.Join(compress.AlgoNames(), ", "),
				},
			},
		},
		{
			Name:        "pack",
			Category:    storeGroup,
			Usage:       "Build a compressed container usable as zip: source",
			ArgsUsage:   "<source> <output>",
			Description: sourceHelp,
			Action:      withArgCheck(needAtLeast(2), handlePack),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "algo,a",
					Usage: "Algorithm to use (default: compress.default_algo)",
				},
			},
		},
		{
			Name:     "kv",
			Category: kvGroup,
			Usage:    "Manage blobs in a key value store",
			Subcommands: []cli.Command{
				{
					Name:      "import",
					Usage:     "Import a file (or stdin) as blob",
					ArgsUsage: "<dir> <name> [<file>|-]",
					Action:    withArgCheck(needAtLeast(2), handleKvImport),
				},
				{
					Name:      "ls",
					Usage:     "List all blobs",
					ArgsUsage: "<dir>",
					Action:    withArgCheck(needAtLeast(1), handleKvList),
				},
				{
					Name:      "rm",
					Usage:     "Remove a blob",
					ArgsUsage: "<dir> <name>",
					Action:    withArgCheck(needAtLeast(2), handleKvRemove),
				},
			},
		},
		{
			Name:        "bench",
			Category:    miscGroup,
			Usage:       "Measure random IO on overlays with different page sizes",
			ArgsUsage:   "[<source>]",
			Description: "Without a source, random data in memory is used.\n   " + sourceHelp,
			Action:      handleBench,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "size,s",
					Value: "16M",
					Usage: "Size of the generated data",
				},
				cli.StringFlag{
					Name:  "io-size,i",
					Value: "4K",
					Usage: "Size of a single read or write",
				},
				cli.StringFlag{
					Name:  "page-sizes",
					Value: "4K,64K,1M",
					Usage: "Comma separated list of page sizes to compare",
				},
				cli.IntFlag{
					Name:  "ops,n",
					Value: 10000,
					Usage: "Number of operations",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 42,
					Usage: "Seed for data and offsets",
				},
			},
		},
		{
			Name:     "config",
			Category: miscGroup,
			Usage:    "Show and modify the configuration",
			Subcommands: []cli.Command{
				{
					Name:   "ls",
					Usage:  "List all keys with their values and docs",
					Action: handleConfigList,
				},
				{
					Name:      "get",
					Usage:     "Print the value of a key",
					ArgsUsage: "<key>",
					Action:    withArgCheck(needAtLeast(1), handleConfigGet),
				},
				{
					Name:      "set",
					Usage:     "Set a key and save the config",
					ArgsUsage: "<key> <value>",
					Action:    withArgCheck(needAtLeast(2), handleConfigSet),
				},
			},
		},
	}

	app.Before = setupLogging

	return exitCodeOf(app.Run(args))
}
