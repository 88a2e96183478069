/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/pkg/errors"
)

const (
	promptMain = "gbolt> "
	promptCont = "...... "
)

var errorColor = color.New(color.FgHiRed).Sprintf

// interact runs the line-edited loop. Statements may span lines and are
// submitted at a terminating semicolon; `:`-directives are evaluated
// immediately. Every submitted directive lands in the history file.
func interact(st *shellState) error {
	if st.histfile != "" {
		if err := cos.CreateParent(st.histfile); err != nil {
			return err
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		HistoryFile:     st.histfile,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize line editing")
	}
	defer rl.Close()

	var stmt strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			stmt.Reset()
			rl.SetPrompt(promptMain)
			continue
		}
		if err != nil {
			break // EOF or closed terminal
		}
		directive, complete := accumulate(&stmt, line)
		if !complete {
			rl.SetPrompt(promptCont)
			continue
		}
		rl.SetPrompt(promptMain)
		if directive == "" {
			continue
		}
		if err := evaluate(st, directive); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintln(st.err, errorColor("%v", err))
		}
	}
	return nil
}

// batch evaluates directives from a non-interactive input and stops at the
// first failure.
func batch(st *shellState, in io.Reader) error {
	var (
		stmt    strings.Builder
		scanner = bufio.NewScanner(in)
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		directive, complete := accumulate(&stmt, scanner.Text())
		if !complete || directive == "" {
			continue
		}
		if err := evaluate(st, directive); err != nil {
			if err == errQuit {
				return nil
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// a trailing statement without a semicolon is still submitted
	if rest := strings.TrimSpace(stmt.String()); rest != "" {
		if err := evaluate(st, rest); err != nil && err != errQuit {
			return err
		}
	}
	return nil
}

// accumulate gathers one directive: a `:`-command completes immediately, a
// statement completes at a line ending with a semicolon.
func accumulate(stmt *strings.Builder, line string) (directive string, complete bool) {
	trimmed := strings.TrimSpace(line)
	if stmt.Len() == 0 {
		if trimmed == "" {
			return "", true
		}
		if strings.HasPrefix(trimmed, ":") {
			return trimmed, true
		}
	}
	if stmt.Len() > 0 {
		stmt.WriteByte('\n')
	}
	stmt.WriteString(line)
	if strings.HasSuffix(trimmed, ";") {
		directive = strings.TrimSpace(stmt.String())
		stmt.Reset()
		return directive, true
	}
	return "", false
}
