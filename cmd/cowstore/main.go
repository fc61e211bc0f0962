package main

import (
	"os"

	"github.com/sahib/cowstore/cmd"
)

func main() {
	os.Exit(cmd.RunCmdline(os.Args))
}
