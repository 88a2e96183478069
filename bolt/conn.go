// Package bolt implements the protocol engine of a Bolt graph database
// client: connection handshake, sessions with a pipelined request queue,
// and lazily-driven result streams over chunked PackStream messages.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

import (
	"crypto/tls"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/graphbolt/graphbolt/chunk"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// handshake preamble, followed by four big-endian u32 version proposals
var preamble = [4]byte{0x60, 0x60, 0xB0, 0x17}

const protocolVersion = 1

const (
	DefaultPort     = "7687"
	dfltUserAgent   = "graphbolt/1.0"
	dfltDialTimeout = 30 * time.Second
)

type Config struct {
	Logger    *logrus.Logger
	UserAgent string
	Username  string
	Password  string

	// TLS enables transport encryption; Insecure skips verification.
	TLS      bool
	Insecure bool

	DialTimeout time.Duration

	// chunking parameters; zero selects the defaults
	SndMinChunk int
	SndMaxChunk int
}

func (cfg *Config) userAgent() string {
	if cfg == nil || cfg.UserAgent == "" {
		return dfltUserAgent
	}
	return cfg.UserAgent
}

func (cfg *Config) logger() *logrus.Logger {
	if cfg == nil || cfg.Logger == nil {
		return logrus.StandardLogger()
	}
	return cfg.Logger
}

// Connection is a negotiated transport: the handshake has completed and all
// further traffic is chunked messages. A connection serves one session at a
// time.
type Connection struct {
	rw      io.ReadWriteCloser
	cs      *chunk.Stream
	log     *logrus.Entry
	address string
	version uint32
	inuse   bool
}

// Connect dials the address (host or host:port), negotiates TLS when
// configured, and performs the Bolt version handshake.
func Connect(address string, cfg *Config) (*Connection, error) {
	if address == "" {
		return nil, errors.New("address must not be empty")
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, DefaultPort)
	}
	timeout := dfltDialTimeout
	if cfg != nil && cfg.DialTimeout > 0 {
		timeout = cfg.DialTimeout
	}
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", address)
	}
	rw := io.ReadWriteCloser(conn)
	if cfg != nil && cfg.TLS {
		host, _, _ := net.SplitHostPort(address)
		tconn := tls.Client(conn, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: cfg.Insecure,
		})
		if err := tconn.Handshake(); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "TLS handshake with %s failed", address)
		}
		rw = tconn
	}
	c, err := NewConnection(rw, cfg)
	if err != nil {
		rw.Close()
		return nil, err
	}
	c.address = address
	return c, nil
}

// NewConnection performs the version handshake over an established
// transport. It is the entry point for tests and custom transports.
func NewConnection(rw io.ReadWriteCloser, cfg *Config) (*Connection, error) {
	var (
		buf    [20]byte
		sndMin = chunk.DfltMinChunk
		sndMax = chunk.MaxChunk
	)
	copy(buf[:4], preamble[:])
	binary.BigEndian.PutUint32(buf[4:8], protocolVersion)
	// remaining three proposals are zero-padded
	if _, err := rw.Write(buf[:20]); err != nil {
		return nil, errors.Wrap(err, "handshake write failed")
	}
	if _, err := io.ReadFull(rw, buf[:4]); err != nil {
		return nil, errors.Wrap(err, "handshake read failed")
	}
	version := binary.BigEndian.Uint32(buf[:4])
	if version == 0 {
		return nil, cos.ErrProtocolNegotiationFailed
	}
	if version != protocolVersion {
		return nil, errors.Wrapf(cos.ErrProtocolNegotiationFailed,
			"server selected unsupported version %d", version)
	}
	if cfg != nil && cfg.SndMinChunk > 0 {
		sndMin = cfg.SndMinChunk
	}
	if cfg != nil && cfg.SndMaxChunk > 0 {
		sndMax = cfg.SndMaxChunk
	}
	c := &Connection{
		rw:      rw,
		cs:      chunk.NewStream(rw, sndMin, sndMax),
		version: version,
		log:     cfg.logger().WithField("conn", cos.GenUUID()),
	}
	c.log.Debugf("negotiated protocol version %d", version)
	return c, nil
}

func (c *Connection) Version() uint32 { return c.version }

func (c *Connection) Close() error {
	if c.cs == nil {
		return nil
	}
	err := c.cs.Close()
	c.cs = nil
	return err
}
