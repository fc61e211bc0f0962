package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli"
)

// verboseOut is where --verbose output goes.
var verboseOut io.Writer = os.Stderr

// logVerbose prints a progress line when --verbose was given.
// Lines are tagged with the running command, like "[apply] ...".
func logVerbose(ctx *cli.Context, format string, args ...interface{}) {
	if !ctx.GlobalBool("verbose") {
		return
	}

	tag := "cowstore"
	if ctx.Command.Name != "" {
		tag = ctx.Command.Name
	}

	msg := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(verboseOut, "%s %s\n", color.CyanString("[%s]", tag), msg)
}
