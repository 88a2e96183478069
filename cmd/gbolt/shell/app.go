/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"fmt"
	"os"

	"github.com/graphbolt/graphbolt/bolt"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	shellName = "gbolt"
	shellUA   = "gbolt/1.0"

	dfltHistfile = "~/.gbolt/history"
)

// Run builds and runs the shell application.
func Run(args []string) error {
	app := cli.NewApp()
	app.Name = shellName
	app.Usage = "interactive shell for Bolt graph databases"
	app.ArgsUsage = "[address]"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "username, u", Usage: "authenticate as `USER`"},
		cli.StringFlag{Name: "password, p", Usage: "authenticate with `PASS`"},
		cli.BoolFlag{Name: "secure", Usage: "encrypt the connection with TLS"},
		cli.BoolFlag{Name: "insecure, k", Usage: "skip TLS certificate verification"},
		cli.StringFlag{Name: "history", Value: dfltHistfile, Usage: "shell history `FILE`"},
		cli.StringFlag{Name: "output, o", Usage: "result rendering `FORMAT` (table, csv, or json)"},
		cli.StringFlag{Name: "width, w", Usage: "rendered table width (or `auto`)"},
		cli.StringFlag{Name: "config", Value: dfltConfigFile, Usage: "shell configuration `FILE`"},
		cli.BoolFlag{Name: "verbose, v", Usage: "log protocol-level detail to stderr"},
	}
	app.Action = runShell
	return app.Run(args)
}

func runShell(c *cli.Context) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if c.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	st := newShellState(os.Stdout, os.Stderr, log)
	st.interactive = cos.IsTerminal(os.Stdin)

	fc, err := loadConfig(cos.Expand(c.String("config")))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := fc.apply(st); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	// an explicit --history wins over the file; the flag default applies
	// only when the file names no histfile
	if c.IsSet("history") || st.histfile == "" {
		st.histfile = cos.Expand(c.String("history"))
	}

	st.cfg = &bolt.Config{
		Logger:    log,
		UserAgent: shellUA,
		Username:  firstOf(c.String("username"), fc.Username),
		Password:  c.String("password"),
		TLS:       c.Bool("secure"),
		Insecure:  c.Bool("insecure"),
	}
	if output := c.String("output"); output != "" {
		if err := evalOutput(st, output); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	if width := c.String("width"); width != "" {
		if err := evalWidth(st, width); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	if address := c.Args().First(); address != "" {
		if err := st.connect(address); err != nil {
			return cli.NewExitError(fmt.Sprintf("%s: %v", shellName, err), 1)
		}
	}
	defer func() {
		if st.connected() {
			_ = st.disconnect()
		}
	}()

	if st.interactive {
		err = interact(st)
	} else {
		err = batch(st, os.Stdin)
	}
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%s: %v", shellName, err), 1)
	}
	return nil
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
