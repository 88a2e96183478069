/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
	"testing"

	"github.com/graphbolt/graphbolt/bolt"
	"github.com/graphbolt/graphbolt/chunk"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/graphbolt/graphbolt/wire"
	"github.com/sirupsen/logrus"
)

// pipeBuf is one direction of an in-memory duplex: an unbounded buffer so
// that pipelined writes never block the writer (unlike net.Pipe).
type pipeBuf struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newPipeBuf() *pipeBuf {
	b := &pipeBuf{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pipeBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := b.buf.Write(p)
	b.cond.Broadcast()
	return n, nil
}

func (b *pipeBuf) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.buf.Len() == 0 {
		return 0, io.EOF
	}
	return b.buf.Read(p)
}

func (b *pipeBuf) close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

type duplex struct {
	r, w *pipeBuf
}

func (d *duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.w.Write(p) }
func (d *duplex) Close() error                { d.r.close(); d.w.close(); return nil }

func newDuplex() (client, server *duplex) {
	a, b := newPipeBuf(), newPipeBuf()
	return &duplex{r: a, w: b}, &duplex{r: b, w: a}
}

// srv is the scripted server side of one test connection.
type srv struct {
	t  *testing.T
	cs *chunk.Stream
	// received requests, by signature name, in arrival order
	mu       sync.Mutex
	received []string
}

func (sv *srv) send(sig byte, fields ...values.Value) {
	if err := wire.Send(sv.cs, sig, fields...); err != nil {
		sv.t.Errorf("server send %s: %v", wire.TypeString(sig), err)
	}
}

func (sv *srv) success(entries ...values.Entry) {
	sv.send(wire.SigSuccess, values.Map(entries))
}

func (sv *srv) record(fields ...values.Value) {
	sv.send(wire.SigRecord, values.List(fields))
}

func (sv *srv) requests() []string {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return append([]string(nil), sv.received...)
}

// serve performs the server side of the handshake and then feeds every
// received message to the handler until the transport drains.
func serve(t *testing.T, rw io.ReadWriter, handle func(sv *srv, msg *wire.Message)) *srv {
	sv := &srv{t: t}
	go func() {
		var hs [20]byte
		if _, err := io.ReadFull(rw, hs[:]); err != nil {
			return
		}
		if !bytes.Equal(hs[:4], []byte{0x60, 0x60, 0xB0, 0x17}) {
			t.Errorf("bad handshake preamble: % x", hs[:4])
			return
		}
		var version [4]byte
		binary.BigEndian.PutUint32(version[:], 1)
		if _, err := rw.Write(version[:]); err != nil {
			return
		}
		sv.cs = chunk.NewStream(rw, 1, chunk.MaxChunk)
		for {
			pool := mpool.New(0)
			msg, err := wire.Receive(sv.cs, &pool)
			if err != nil {
				return
			}
			sv.mu.Lock()
			sv.received = append(sv.received, msg.String())
			sv.mu.Unlock()
			handle(sv, msg)
			_ = sv.cs.Flush()
		}
	}()
	return sv
}

// initOK is the default INIT handling shared by most scripts.
func initOK(sv *srv, msg *wire.Message) bool {
	if msg.Sig != wire.SigInit {
		return false
	}
	sv.success(values.Ent("server", values.String("graphd/1.0")))
	return true
}

func quietConfig() *bolt.Config {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &bolt.Config{Logger: log}
}
