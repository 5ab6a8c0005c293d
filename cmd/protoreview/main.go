package main

import (
	"os"

	"github.com/effective-security/protoreview/internal/cli"
	"github.com/effective-security/xlog"
)

func main() {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if os.Getenv("DEBUG") != "" {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}

	c := cli.New(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(c.Run(os.Args[1:]))
}
