// Package wire implements the Bolt message codec: a message is a one-byte
// signature plus a field list, carried as a single PackStream struct within
// one chunked frame.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package wire

import (
	"fmt"
	"io"

	"github.com/graphbolt/graphbolt/chunk"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/pack"
	"github.com/graphbolt/graphbolt/values"
	"github.com/pkg/errors"
)

// message signatures
const (
	SigInit       byte = 0x01
	SigAckFailure byte = 0x0E
	SigReset      byte = 0x0F
	SigRun        byte = 0x10
	SigDiscardAll byte = 0x2F
	SigPullAll    byte = 0x3F

	SigSuccess byte = 0x70
	SigRecord  byte = 0x71
	SigIgnored byte = 0x7E
	SigFailure byte = 0x7F
)

// Message is a decoded server or client message.
type Message struct {
	Fields []values.Value
	Sig    byte
}

func (m *Message) String() string { return TypeString(m.Sig) }

func TypeString(sig byte) string {
	switch sig {
	case SigInit:
		return "INIT"
	case SigAckFailure:
		return "ACK_FAILURE"
	case SigReset:
		return "RESET"
	case SigRun:
		return "RUN"
	case SigDiscardAll:
		return "DISCARD_ALL"
	case SigPullAll:
		return "PULL_ALL"
	case SigSuccess:
		return "SUCCESS"
	case SigRecord:
		return "RECORD"
	case SigIgnored:
		return "IGNORED"
	case SigFailure:
		return "FAILURE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", sig)
}

// UnexpectedMessage reports a server message that is invalid for the
// current FIFO head; it is a protocol-kind (fatal) error.
func UnexpectedMessage(msg *Message, respTo, expected string) error {
	return cos.NewErrUnexpectedMessage(msg.String(), respTo, expected)
}

// Send encodes one message onto the chunking stream and marks the message
// boundary. Marking the boundary flushes the stream, so the whole message
// has been written to the delegate when Send returns.
func Send(cs *chunk.Stream, sig byte, fields ...values.Value) error {
	enc := pack.NewEncoder(cs)
	if err := enc.Encode(values.Struct(sig, fields)); err != nil {
		return errors.Wrapf(err, "failed to encode %s", TypeString(sig))
	}
	return cs.MarkMessageEnd()
}

// Receive decodes exactly one message from the chunking stream, borrowing
// value storage from the given pool, and advances past the message boundary.
func Receive(cs *chunk.Stream, pool *mpool.Pool) (*Message, error) {
	dec := pack.NewDecoder(cs, pool)
	v, err := dec.Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(cos.ErrProtocol, "empty message")
		}
		return nil, err
	}
	if !v.IsStruct() {
		return nil, errors.Wrapf(cos.ErrProtocol,
			"message is not a struct (got %s)", v.String())
	}
	// the struct must be immediately followed by the message boundary
	var trailing [1]byte
	if _, err := cs.Read(trailing[:]); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrap(cos.ErrProtocol, "trailing bytes after message")
	}
	if err := cs.NextMessage(); err != nil {
		return nil, err
	}
	return &Message{Sig: v.Sig(), Fields: v.Items()}, nil
}
