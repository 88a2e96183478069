/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package wire_test

import (
	"bytes"
	"testing"

	"github.com/graphbolt/graphbolt/chunk"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/graphbolt/graphbolt/wire"
)

func TestSendReceive(t *testing.T) {
	var raw bytes.Buffer
	out := chunk.NewStream(&raw, 4, 128)
	err := wire.Send(out, wire.SigRun,
		values.String("RETURN $n"),
		values.Map([]values.Entry{values.Ent("n", values.Int(41))}),
	)
	if err != nil {
		t.Fatal(err)
	}

	in := chunk.NewStream(&raw, 4, 128)
	pool := mpool.New(0)
	msg, err := wire.Receive(in, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Sig != wire.SigRun {
		t.Fatalf("sig = 0x%02X", msg.Sig)
	}
	if len(msg.Fields) != 2 || msg.Fields[0].Str() != "RETURN $n" {
		t.Fatalf("fields = %v", msg.Fields)
	}
	if v, ok := msg.Fields[1].MapGet("n"); !ok || v.Int() != 41 {
		t.Fatalf("params = %s", msg.Fields[1].String())
	}
}

func TestReceiveSequence(t *testing.T) {
	var raw bytes.Buffer
	out := chunk.NewStream(&raw, 4, 128)
	for i := 0; i < 3; i++ {
		if err := wire.Send(out, wire.SigRecord,
			values.List([]values.Value{values.Int(int64(i))})); err != nil {
			t.Fatal(err)
		}
	}
	if err := wire.Send(out, wire.SigSuccess, values.Map(nil)); err != nil {
		t.Fatal(err)
	}

	in := chunk.NewStream(&raw, 4, 128)
	pool := mpool.New(0)
	for i := 0; i < 3; i++ {
		msg, err := wire.Receive(in, &pool)
		if err != nil {
			t.Fatal(err)
		}
		if msg.Sig != wire.SigRecord || msg.Fields[0].Item(0).Int() != int64(i) {
			t.Fatalf("record %d: %s %v", i, msg, msg.Fields)
		}
	}
	msg, err := wire.Receive(in, &pool)
	if err != nil || msg.Sig != wire.SigSuccess {
		t.Fatalf("tail: %v, %v", msg, err)
	}
}

func TestReceiveNonStruct(t *testing.T) {
	var raw bytes.Buffer
	out := chunk.NewStream(&raw, 4, 128)
	if _, err := out.Write([]byte{0x01}); err != nil { // a bare tiny int
		t.Fatal(err)
	}
	if err := out.MarkMessageEnd(); err != nil {
		t.Fatal(err)
	}

	in := chunk.NewStream(&raw, 4, 128)
	pool := mpool.New(0)
	if _, err := wire.Receive(in, &pool); !cos.IsErrProtocol(err) {
		t.Fatalf("want protocol error, got %v", err)
	}
}

func TestTypeString(t *testing.T) {
	if wire.TypeString(wire.SigPullAll) != "PULL_ALL" {
		t.Fatal("PULL_ALL")
	}
	if wire.TypeString(0x99) != "UNKNOWN(0x99)" {
		t.Fatalf("unknown: %s", wire.TypeString(0x99))
	}
}
