// Package chunk frames arbitrary byte sequences as 16-bit length-prefixed
// chunks on an underlying transport, with a zero-length chunk marking each
// message boundary.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package chunk

import (
	"encoding/binary"
	"io"

	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/cmn/debug"
	"github.com/pkg/errors"
)

const (
	DfltMinChunk = 1024
	MaxChunk     = 0xFFFF // chunk length is a u16
)

// Stream wraps a delegate transport. Writes are buffered until the buffer
// holds at least sndMin bytes or the caller marks a message boundary; each
// emitted chunk carries at most sndMax bytes. Reads reassemble chunks and
// surface the zero-length boundary as io.EOF until NextMessage.
//
// The stream never blocks beyond the delegate; short reads and writes on
// the delegate propagate. A receive-side error is sticky: subsequent reads
// keep returning it until the stream is closed.
type Stream struct {
	rw     io.ReadWriter
	rcvErr error

	sndBuf  []byte
	sndUsed int
	sndMin  int
	sndMax  int

	rcvRemain int
	prefix    [2]byte

	dataSent bool
	atEOM    bool
	closed   bool
}

func NewStream(rw io.ReadWriter, sndMin, sndMax int) *Stream {
	if sndMin <= 0 {
		sndMin = DfltMinChunk
	}
	if sndMax <= 0 || sndMax > MaxChunk {
		sndMax = MaxChunk
	}
	debug.Assertf(sndMin <= sndMax, "(%d, %d)", sndMin, sndMax)
	return &Stream{
		rw:     rw,
		sndBuf: make([]byte, 0, sndMin),
		sndMin: sndMin,
		sndMax: sndMax,
	}
}

//
// send side
//

func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.Wrap(io.ErrClosedPipe, "chunk stream")
	}
	if s.sndUsed+len(p) < s.sndMin {
		s.sndBuf = append(s.sndBuf[:s.sndUsed], p...)
		s.sndUsed += len(p)
		return len(p), nil
	}
	// the minimum is reached: emit buffered bytes and the incoming slice as
	// chunks of at most sndMax
	if err := s.drainSend(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// drainSend emits s.sndBuf[:sndUsed] followed by p, in chunks of up to
// sndMax bytes, and empties the send buffer.
func (s *Stream) drainSend(p []byte) error {
	for s.sndUsed+len(p) > 0 {
		n := s.sndUsed + len(p)
		if n > s.sndMax {
			n = s.sndMax
		}
		if err := s.writeChunkHeader(n); err != nil {
			return err
		}
		// buffered part first
		if s.sndUsed > 0 {
			m := n
			if m > s.sndUsed {
				m = s.sndUsed
			}
			if _, err := s.rw.Write(s.sndBuf[:m]); err != nil {
				return err
			}
			copy(s.sndBuf, s.sndBuf[m:s.sndUsed])
			s.sndUsed -= m
			n -= m
		}
		if n > 0 {
			if _, err := s.rw.Write(p[:n]); err != nil {
				return err
			}
			p = p[n:]
		}
		s.dataSent = true
	}
	return nil
}

func (s *Stream) writeChunkHeader(n int) error {
	debug.Assert(n >= 0 && n <= MaxChunk)
	binary.BigEndian.PutUint16(s.prefix[:], uint16(n))
	_, err := s.rw.Write(s.prefix[:])
	return err
}

// Flush emits any buffered bytes as a single chunk without ending the
// message.
func (s *Stream) Flush() error {
	if s.sndUsed == 0 {
		return nil
	}
	return s.drainSend(nil)
}

// MarkMessageEnd flushes buffered data and writes the zero-length boundary
// chunk, resetting the data-sent flag.
func (s *Stream) MarkMessageEnd() error {
	if s.closed {
		return errors.Wrap(io.ErrClosedPipe, "chunk stream")
	}
	if err := s.Flush(); err != nil {
		return err
	}
	if err := s.writeChunkHeader(0); err != nil {
		return err
	}
	s.dataSent = false
	return nil
}

//
// receive side
//

func (s *Stream) Read(p []byte) (int, error) {
	if s.rcvErr != nil {
		return 0, s.rcvErr
	}
	if s.closed {
		return 0, errors.Wrap(io.ErrClosedPipe, "chunk stream")
	}
	if s.atEOM {
		return 0, io.EOF
	}
	if s.rcvRemain == 0 {
		n, err := s.readChunkHeader()
		if err != nil {
			s.rcvErr = err
			return 0, err
		}
		if n == 0 {
			s.atEOM = true
			return 0, io.EOF
		}
		s.rcvRemain = n
	}
	if len(p) > s.rcvRemain {
		p = p[:s.rcvRemain]
	}
	n, err := s.rw.Read(p)
	s.rcvRemain -= n
	if err != nil {
		if err == io.EOF {
			err = errors.Wrap(cos.ErrInvalidChunkLength, "delegate closed mid-chunk")
		}
		s.rcvErr = err
	}
	return n, err
}

func (s *Stream) readChunkHeader() (int, error) {
	if _, err := io.ReadFull(s.rw, s.prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = errors.Wrap(cos.ErrInvalidChunkLength, "truncated chunk header")
		}
		return 0, err
	}
	return int(binary.BigEndian.Uint16(s.prefix[:])), nil
}

// NextMessage resets the end-of-message state, discarding any unread bytes
// of the current message, so the following message can be read.
func (s *Stream) NextMessage() error {
	if s.rcvErr != nil {
		return s.rcvErr
	}
	for !s.atEOM {
		var scratch [512]byte
		if _, err := s.Read(scratch[:]); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	s.atEOM = false
	return nil
}

// Close flushes pending sends and closes the delegate if it is a closer.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush()
	s.closed = true
	if c, ok := s.rw.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
