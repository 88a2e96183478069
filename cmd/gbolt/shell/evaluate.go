/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/graphbolt/graphbolt/values"
	"github.com/pkg/errors"
)

type shellCommand struct {
	name   string
	action func(st *shellState, args string) error
}

var shellCommands []shellCommand

func init() {
	shellCommands = []shellCommand{
		{"connect", evalConnect},
		{"disconnect", evalDisconnect},
		{"exit", evalQuit},
		{"export", evalExport},
		{"help", evalHelp},
		{"output", evalOutput},
		{"quit", evalQuit},
		{"reset", evalReset},
		{"set", evalSet},
		{"unexport", evalUnexport},
		{"width", evalWidth},
	}
}

// errQuit unwinds the evaluation loop on `:quit`.
var errQuit = errors.New("quit")

// evaluate processes one directive: a `:`-prefixed shell command or a
// statement to submit.
func evaluate(st *shellState, directive string) error {
	directive = strings.TrimSpace(directive)
	if directive == "" {
		return nil
	}
	if strings.HasPrefix(directive, ":") {
		return evaluateCommand(st, directive[1:])
	}
	return evaluateStatement(st, strings.TrimSuffix(directive, ";"))
}

func evaluateCommand(st *shellState, command string) error {
	name, args := command, ""
	if i := strings.IndexAny(command, " \t"); i >= 0 {
		name, args = command[:i], strings.TrimSpace(command[i+1:])
	}
	for _, sc := range shellCommands {
		if sc.name == name {
			return sc.action(st, args)
		}
	}
	return errors.Errorf("unknown command `:%s` (for usage, enter `:help`)", name)
}

func evaluateStatement(st *shellState, statement string) error {
	if !st.connected() {
		return errors.New("not connected - use `:connect <address>`")
	}
	rs, err := st.session.Run(statement, st.params())
	if err != nil {
		return err
	}
	defer rs.Close()

	if err := rs.CheckFailure(); err != nil {
		if code := rs.ErrorCode(); code != "" {
			return errors.Errorf("%s: %s", code, rs.ErrorMessage())
		}
		return err
	}
	if err := st.render(st, rs); err != nil {
		return err
	}
	return renderUpdateCounts(st, rs)
}

//
// commands
//

func evalConnect(st *shellState, args string) error {
	if args == "" {
		return errors.New("`:connect` requires an address")
	}
	return st.connect(args)
}

func evalDisconnect(st *shellState, args string) error {
	if args != "" {
		return errors.New("`:disconnect` takes no arguments")
	}
	return st.disconnect()
}

func evalQuit(st *shellState, _ string) error {
	if st.connected() {
		_ = st.disconnect()
	}
	return errQuit
}

func evalReset(st *shellState, args string) error {
	if args != "" {
		return errors.New("`:reset` takes no arguments")
	}
	if !st.connected() {
		return errors.New("not connected")
	}
	return st.session.Reset()
}

func evalExport(st *shellState, args string) error {
	if args == "" {
		for _, e := range st.params().Entries() {
			fmt.Fprintf(st.out, "%s=%s\n", e.Key.Str(), e.Val.String())
		}
		return nil
	}
	name, val, ok := strings.Cut(args, "=")
	if !ok {
		return errors.New("`:export` requires NAME=VALUE")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("`:export` requires NAME=VALUE")
	}
	st.exports[name] = parseLiteral(strings.TrimSpace(val))
	return nil
}

func evalUnexport(st *shellState, args string) error {
	if args == "" {
		return errors.New("`:unexport` requires a variable name")
	}
	delete(st.exports, args)
	return nil
}

func evalSet(st *shellState, args string) error {
	if args == "" {
		fmt.Fprintf(st.out, "output=%s\n", st.outputName)
		fmt.Fprintf(st.out, "width=%s\n", widthString(st))
		return nil
	}
	name, val, ok := strings.Cut(args, "=")
	if !ok {
		return errors.Errorf("unknown variable %q (for usage, enter `:help`)", args)
	}
	switch strings.TrimSpace(name) {
	case "output":
		return evalOutput(st, strings.TrimSpace(val))
	case "width":
		return evalWidth(st, strings.TrimSpace(val))
	}
	return errors.Errorf("unknown variable %q", name)
}

func evalOutput(st *shellState, args string) error {
	if args == "" {
		return errors.New("`:output` requires a rendering format (table, csv, or json)")
	}
	r, ok := renderers[args]
	if !ok {
		return errors.Errorf("unknown output format %q (table, csv, or json)", args)
	}
	st.render, st.outputName = r, args
	return nil
}

func evalWidth(st *shellState, args string) error {
	if args == "" {
		return errors.New("`:width` requires an integer value, or `auto`")
	}
	if args == "auto" {
		if !st.interactive {
			return errors.New("`:width auto` is only available in interactive sessions")
		}
		st.autosize = true
		return nil
	}
	w, err := strconv.Atoi(args)
	if err != nil || w < minWidth || w >= maxWidth {
		return errors.Errorf("width value (%s) out of range [%d, %d)", args, minWidth, maxWidth)
	}
	st.autosize = false
	st.width = w
	return nil
}

func evalHelp(st *shellState, _ string) error {
	fmt.Fprint(st.out, `:connect <address>   Connect to a graph database
:disconnect          Close the current connection
:export NAME=VAL     Set a statement parameter (no argument: list)
:unexport NAME       Remove a statement parameter
:reset               Reset the session, aborting in-flight work
:output table|csv|json
                     Select the result rendering format
:width <n>|auto      Set the rendered table width
:set [NAME=VAL]      Show or set shell variables
:help                Show this text
:quit                Exit the shell
`)
	return nil
}

//
// helpers
//

// renderWidth resolves `:width auto` against the terminal at render time.
func renderWidth(st *shellState) int {
	if st.autosize {
		if w := readline.GetScreenWidth(); w >= minWidth {
			return w
		}
	}
	return st.width
}

func widthString(st *shellState) string {
	if st.autosize {
		return "auto"
	}
	return strconv.Itoa(st.width)
}

// parseLiteral interprets an exported value: null, booleans, numbers, and
// quoted strings; anything else is taken as a raw string.
func parseLiteral(s string) values.Value {
	switch s {
	case "null":
		return values.Null
	case "true":
		return values.Bool(true)
	case "false":
		return values.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return values.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return values.Float(f)
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return values.String(unquoted)
		}
	}
	return values.String(s)
}
