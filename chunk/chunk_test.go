/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package chunk_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/graphbolt/graphbolt/chunk"
)

// splitChunks parses raw delegate bytes into chunk payloads; a zero-length
// chunk yields a nil entry.
func splitChunks(t *testing.T, raw []byte) [][]byte {
	t.Helper()
	var chunks [][]byte
	for len(raw) > 0 {
		if len(raw) < 2 {
			t.Fatalf("dangling chunk header: % x", raw)
		}
		n := int(binary.BigEndian.Uint16(raw))
		raw = raw[2:]
		if len(raw) < n {
			t.Fatalf("truncated chunk: want %d, have %d", n, len(raw))
		}
		if n == 0 {
			chunks = append(chunks, nil)
		} else {
			chunks = append(chunks, raw[:n])
		}
		raw = raw[n:]
	}
	return chunks
}

func fill(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestWriteBelowMinBuffers(t *testing.T) {
	var buf bytes.Buffer
	s := chunk.NewStream(&buf, 16, 64)
	if _, err := s.Write(fill(10)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("below-min write must stay buffered, delegate got %d bytes", buf.Len())
	}
	if err := s.MarkMessageEnd(); err != nil {
		t.Fatal(err)
	}
	chunks := splitChunks(t, buf.Bytes())
	if len(chunks) != 2 || len(chunks[0]) != 10 || chunks[1] != nil {
		t.Fatalf("want [10-byte chunk, boundary], got %d chunks", len(chunks))
	}
}

func TestChunkCountFormula(t *testing.T) {
	// writing N bytes then flushing yields ceil(N/max) chunks if N >= min,
	// else one chunk of N bytes, always followed by the boundary
	const min, max = 8, 32
	for _, n := range []int{1, 7, 8, 31, 32, 33, 64, 100} {
		var buf bytes.Buffer
		s := chunk.NewStream(&buf, min, max)
		if _, err := s.Write(fill(n)); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkMessageEnd(); err != nil {
			t.Fatal(err)
		}
		chunks := splitChunks(t, buf.Bytes())
		want := 1
		if n >= min {
			want = (n + max - 1) / max
		}
		if len(chunks) != want+1 {
			t.Fatalf("N=%d: got %d chunks, want %d + boundary", n, len(chunks)-1, want)
		}
		if chunks[len(chunks)-1] != nil {
			t.Fatalf("N=%d: missing zero-length boundary chunk", n)
		}
		var total []byte
		for _, c := range chunks[:len(chunks)-1] {
			if len(c) > max {
				t.Fatalf("N=%d: chunk exceeds max: %d", n, len(c))
			}
			total = append(total, c...)
		}
		if !bytes.Equal(total, fill(n)) {
			t.Fatalf("N=%d: payload mangled", n)
		}
	}
}

func TestReadReassemblesMessage(t *testing.T) {
	var wire bytes.Buffer
	w := chunk.NewStream(&wire, 4, 8)
	payload := fill(20)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.MarkMessageEnd(); err != nil {
		t.Fatal(err)
	}

	r := chunk.NewStream(&wire, 4, 8)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled % x, want % x", got, payload)
	}
	// boundary is monotone until NextMessage
	if _, err := r.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("read past boundary: %v", err)
	}
}

func TestNextMessage(t *testing.T) {
	var wire bytes.Buffer
	w := chunk.NewStream(&wire, 4, 8)
	for _, msg := range []string{"first message", "second"} {
		if _, err := io.WriteString(w, msg); err != nil {
			t.Fatal(err)
		}
		if err := w.MarkMessageEnd(); err != nil {
			t.Fatal(err)
		}
	}

	r := chunk.NewStream(&wire, 4, 8)
	one, err := io.ReadAll(r)
	if err != nil || string(one) != "first message" {
		t.Fatalf("first = %q, %v", one, err)
	}
	if err := r.NextMessage(); err != nil {
		t.Fatal(err)
	}
	two, err := io.ReadAll(r)
	if err != nil || string(two) != "second" {
		t.Fatalf("second = %q, %v", two, err)
	}
}

func TestNextMessageDiscardsUnread(t *testing.T) {
	var wire bytes.Buffer
	w := chunk.NewStream(&wire, 4, 8)
	_, _ = io.WriteString(w, "unwanted remainder")
	_ = w.MarkMessageEnd()
	_, _ = io.WriteString(w, "next")
	_ = w.MarkMessageEnd()

	r := chunk.NewStream(&wire, 4, 8)
	if _, err := r.Read(make([]byte, 3)); err != nil {
		t.Fatal(err)
	}
	if err := r.NextMessage(); err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil || string(got) != "next" {
		t.Fatalf("after skip = %q, %v", got, err)
	}
}

func TestStickyReceiveError(t *testing.T) {
	wire := bytes.NewBuffer([]byte{0x00, 0x08, 'a', 'b'}) // chunk claims 8, has 2
	r := chunk.NewStream(wire, 4, 8)
	b := make([]byte, 16)
	n, _ := r.Read(b)
	_ = n
	var err error
	for i := 0; i < 3; i++ {
		_, err = r.Read(b)
		if err == nil {
			continue
		}
	}
	if err == nil {
		t.Fatal("truncated chunk must fail")
	}
	// error is sticky
	if _, err2 := r.Read(b); err2 != err {
		t.Fatalf("receive error not sticky: %v vs %v", err2, err)
	}
}

func TestCloseFlushes(t *testing.T) {
	var wire bytes.Buffer
	s := chunk.NewStream(&wire, 64, 128)
	_, _ = io.WriteString(s, "pending")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	chunks := splitChunks(t, wire.Bytes())
	if len(chunks) != 1 || string(chunks[0]) != "pending" {
		t.Fatalf("close must flush pending sends, got %d chunks", len(chunks))
	}
	if _, err := s.Write([]byte("x")); err == nil {
		t.Fatal("write after close must fail")
	}
}
