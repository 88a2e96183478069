/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

import (
	"github.com/graphbolt/graphbolt/chunk"
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/cmn/debug"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/graphbolt/graphbolt/wire"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// disposition tells the dispatch loop what to do with the FIFO head
	// after a callback handled one server message.
	disposition int8

	// responseCallback handles one server message for a pending request.
	// A nil message means the session is tearing down and the entry is
	// aborted: implementations release their references and return
	// respDone. A non-nil error is fatal and tears the session down.
	responseCallback func(msg *wire.Message) (disposition, error)

	// pending is one entry of the outbound request FIFO: responses arrive
	// in submission order and are decoded into the entry's pool.
	pending struct {
		cb   responseCallback
		pool *mpool.Pool
		sig  byte
	}
)

const (
	respDone disposition = iota // response completes the pending entry
	respKeep                    // more responses of this kind expected (RECORD streams)
)

// Session drives a request/response state machine over one connection.
// Sessions are single-threaded cooperative: all result streams of a session
// are serviced by the caller's own syncUntil calls, and concurrent use from
// multiple goroutines is undefined.
type Session struct {
	conn *Connection
	cs   *chunk.Stream
	cfg  *Config
	log  *logrus.Entry
	err  error

	queue []pending
	jobs  jobList
	pool  mpool.Pool // session-lifetime storage (INIT metadata, acks)

	serverMeta values.Value

	inflight  bool
	resetting bool
	defunct   bool
	closed    bool
}

// NewSession takes over the connection and performs the INIT exchange,
// waiting synchronously for the outcome. An INIT failure terminates the
// session and surfaces the server's code and message.
func NewSession(conn *Connection, cfg *Config) (*Session, error) {
	if conn == nil || conn.cs == nil {
		return nil, errors.New("connection must be open")
	}
	if conn.inuse {
		return nil, errors.New("connection already serves a session")
	}
	s := &Session{
		conn: conn,
		cs:   conn.cs,
		cfg:  cfg,
		log:  cfg.logger().WithField("session", cos.GenUUID()),
	}
	conn.inuse = true

	var (
		cond    = uint32(1)
		initErr error
	)
	err := s.request(&s.pool, wire.SigInit, func(msg *wire.Message) (disposition, error) {
		cond = 0
		if msg == nil {
			return respDone, nil
		}
		switch msg.Sig {
		case wire.SigSuccess:
			if len(msg.Fields) > 0 {
				s.serverMeta = msg.Fields[0]
			}
			return respDone, nil
		case wire.SigFailure:
			code, message, _ := failureDetails(msg, &s.pool)
			initErr = cos.NewErrServerFailure(code, message)
			return respDone, nil
		}
		return respDone, wire.UnexpectedMessage(msg, "INIT", "SUCCESS or FAILURE")
	}, values.String(cfg.userAgent()), authToken(cfg))
	if err == nil {
		err = s.syncUntil(&cond)
	}
	if err == nil && initErr != nil {
		err = errors.Wrap(initErr, cos.ErrSessionFailed.Error())
		s.teardown(cos.ErrSessionFailed)
	}
	if err != nil {
		conn.inuse = false
		return nil, err
	}
	s.log.Debug("session initialized")
	return s, nil
}

func authToken(cfg *Config) values.Value {
	if cfg == nil || cfg.Username == "" {
		return values.Map([]values.Entry{values.Ent("scheme", values.String("none"))})
	}
	return values.Map([]values.Entry{
		values.Ent("scheme", values.String("basic")),
		values.Ent("principal", values.String(cfg.Username)),
		values.Ent("credentials", values.String(cfg.Password)),
	})
}

// ServerMetadata returns the metadata map from the INIT SUCCESS, or Null.
func (s *Session) ServerMetadata() values.Value { return s.serverMeta }

//
// pipelined request queue
//

// request encodes one outbound message onto the chunking stream (which
// writes it through to the transport at the message boundary) and enqueues
// the pending response at the FIFO tail. It never waits for the server.
func (s *Session) request(pool *mpool.Pool, sig byte, cb responseCallback,
	fields ...values.Value) error {
	if s.closed {
		return cos.ErrSessionEnded
	}
	if s.defunct {
		return s.err
	}
	if err := wire.Send(s.cs, sig, fields...); err != nil {
		s.teardown(err)
		return err
	}
	s.queue = append(s.queue, pending{cb: cb, pool: pool, sig: sig})
	return nil
}

func (s *Session) run(pool *mpool.Pool, cb responseCallback,
	statement string, params values.Value) error {
	if statement == "" {
		return errors.New("statement must not be empty")
	}
	if params.IsNull() {
		params = values.Map(nil)
	}
	if params.Type() != values.TypeMap {
		return errors.Errorf("parameters must be a map (got %s)", params.String())
	}
	return s.request(pool, wire.SigRun, cb, values.String(statement), params)
}

func (s *Session) pullAll(pool *mpool.Pool, cb responseCallback) error {
	return s.request(pool, wire.SigPullAll, cb)
}

func (s *Session) discardAll(pool *mpool.Pool, cb responseCallback) error {
	return s.request(pool, wire.SigDiscardAll, cb)
}

// ackFailure clears the server's ignoring-until-acked state; it is issued
// automatically by the dispatch loop and never surfaces to the caller.
func (s *Session) ackFailure() error {
	return s.request(&s.pool, wire.SigAckFailure, func(msg *wire.Message) (disposition, error) {
		if msg == nil {
			return respDone, nil
		}
		switch msg.Sig {
		case wire.SigSuccess, wire.SigIgnored:
			return respDone, nil
		}
		return respDone, wire.UnexpectedMessage(msg, "ACK_FAILURE", "SUCCESS")
	})
}

// Reset aborts in-flight server-side work. Responses to requests queued
// before the RESET resolve as IGNORED and the affected streams observe
// ErrSessionReset.
func (s *Session) Reset() error {
	if s.closed {
		return cos.ErrSessionEnded
	}
	if s.defunct {
		return s.err
	}
	cond := uint32(1)
	s.resetting = true
	err := s.request(&s.pool, wire.SigReset, func(msg *wire.Message) (disposition, error) {
		cond = 0
		s.resetting = false
		if msg == nil {
			return respDone, nil
		}
		if msg.Sig != wire.SigSuccess {
			return respDone, wire.UnexpectedMessage(msg, "RESET", "SUCCESS")
		}
		return respDone, nil
	})
	if err != nil {
		s.resetting = false
		return err
	}
	return s.syncUntil(&cond)
}

//
// dispatch loop
//

// syncUntil drives I/O until *cond reaches zero (or, with a nil cond, until
// the FIFO drains) or a failure occurs. This is the session's only
// suspension point.
func (s *Session) syncUntil(cond *uint32) error {
	if s.defunct {
		return s.err
	}
	if s.closed {
		return cos.ErrSessionEnded
	}
	if s.inflight {
		return errors.New("reentrant session dispatch")
	}
	s.inflight = true
	defer func() { s.inflight = false }()

	for {
		if cond != nil && *cond == 0 {
			return nil
		}
		if len(s.queue) == 0 {
			if cond == nil {
				return nil
			}
			err := errors.Wrap(cos.ErrProtocol, "no pending requests can satisfy the condition")
			s.teardown(err)
			return err
		}
		if err := s.dispatchOne(); err != nil {
			s.teardown(err)
			return err
		}
	}
}

// dispatchOne flushes outbound data, decodes one server message into the
// FIFO head's pool, and hands it to the head's callback.
func (s *Session) dispatchOne() error {
	debug.Assert(len(s.queue) > 0)
	if err := s.cs.Flush(); err != nil {
		return err
	}
	head := s.queue[0]
	msg, err := wire.Receive(s.cs, head.pool)
	if err != nil {
		return err
	}
	s.log.Debugf("%s received in response to %s", msg, wire.TypeString(head.sig))

	// after a FAILURE the server ignores every request until it is acked;
	// issue the ACK_FAILURE before handing the failure to the stream
	if msg.Sig == wire.SigFailure && wantsAck(head.sig) {
		if err := s.ackFailure(); err != nil {
			return err
		}
	}
	disp, cberr := head.cb(msg)
	if disp == respDone {
		// pop even on a callback error, so that teardown does not abort an
		// entry whose terminal response was already consumed
		s.queue = s.queue[1:]
	}
	return cberr
}

func wantsAck(sig byte) bool {
	return sig == wire.SigRun || sig == wire.SigPullAll || sig == wire.SigDiscardAll
}

//
// teardown
//

// teardown transitions the session to defunct after a transport or protocol
// failure: jobs are notified, and every pending entry is aborted so stream
// reference counts resolve.
func (s *Session) teardown(err error) {
	if s.defunct {
		return
	}
	s.defunct = true
	s.err = err
	s.log.WithError(err).Error("session terminated")
	s.jobs.notifyAll()
	s.abortPending()
	if s.conn != nil {
		s.conn.inuse = false
	}
}

func (s *Session) abortPending() {
	q := s.queue
	s.queue = nil
	for i := range q {
		_, _ = q[i].cb(nil)
	}
}

// Close ends the session: every attached result stream is notified and
// transitions to its terminal state, then remaining pipelined responses are
// drained best-effort and the connection is released for reuse.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if s.defunct {
		s.closed = true
		return nil
	}
	s.jobs.notifyAll()
	var err error
	for len(s.queue) > 0 && !s.defunct {
		if derr := s.dispatchOne(); derr != nil {
			s.abortPending()
			err = derr
			break
		}
	}
	s.closed = true
	s.pool.Drain()
	if s.conn != nil {
		s.conn.inuse = false
	}
	s.log.Debug("session ended")
	return err
}

//
// job registry
//

func (s *Session) attachJob(j *job) { s.jobs.attach(j) }
func (s *Session) detachJob(j *job) { s.jobs.detach(j) }
