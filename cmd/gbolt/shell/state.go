// Package shell implements the gbolt interactive shell: directive
// evaluation, statement submission, and result rendering.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"io"
	"sort"

	"github.com/graphbolt/graphbolt/bolt"
	"github.com/graphbolt/graphbolt/values"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// rendered line width must satisfy 2 <= w < maxWidth
	minWidth = 2
	maxWidth = 65536

	dfltWidth = 70
)

type shellState struct {
	out io.Writer
	err io.Writer
	log *logrus.Logger

	conn    *bolt.Connection
	session *bolt.Session
	address string

	cfg        *bolt.Config
	exports    map[string]values.Value
	render     renderer
	outputName string
	width      int
	autosize   bool

	interactive bool
	histfile    string
}

func newShellState(out, errw io.Writer, log *logrus.Logger) *shellState {
	return &shellState{
		out:     out,
		err:     errw,
		log:     log,
		exports:    make(map[string]values.Value),
		render:     renderTable,
		outputName: "table",
		width:      dfltWidth,
	}
}

func (st *shellState) connected() bool { return st.session != nil }

func (st *shellState) connect(address string) error {
	if st.connected() {
		return errors.New("already connected - use `:disconnect` first")
	}
	conn, err := bolt.Connect(address, st.cfg)
	if err != nil {
		return err
	}
	session, err := bolt.NewSession(conn, st.cfg)
	if err != nil {
		conn.Close()
		return err
	}
	st.conn, st.session, st.address = conn, session, address
	return nil
}

func (st *shellState) disconnect() error {
	if !st.connected() {
		return errors.New("not connected")
	}
	err := st.session.Close()
	if cerr := st.conn.Close(); err == nil {
		err = cerr
	}
	st.conn, st.session, st.address = nil, nil, ""
	return err
}

// params assembles the exported variables into the statement parameter map.
func (st *shellState) params() values.Value {
	if len(st.exports) == 0 {
		return values.Null
	}
	names := make([]string, 0, len(st.exports))
	for name := range st.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]values.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, values.Ent(name, st.exports[name]))
	}
	return values.Map(entries)
}
