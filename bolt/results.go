/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

import (
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/cmn/debug"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/graphbolt/graphbolt/wire"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// ResultStream is a lazy, back-pressured cursor over the records of one
	// statement, plus its post-stream metadata. The session and the user
	// both hold it through this interface.
	ResultStream interface {
		// CheckFailure waits for the RUN response and reports any failure.
		CheckFailure() error
		// ErrorCode returns the structured server error code, if any
		// (e.g. "Neo.ClientError.Statement.SyntaxError").
		ErrorCode() string
		ErrorMessage() string
		NFields() (int, error)
		FieldName(i int) (string, error)
		// FetchNext releases the previously returned record and returns
		// the next one; (nil, nil) signals clean end of stream.
		FetchNext() (Result, error)
		StatementType() (StatementType, error)
		StatementPlan() (*Plan, error)
		UpdateCounts() (UpdateCounts, error)
		// Close releases the user's reference and drives the session until
		// all outstanding callbacks for this stream have resolved.
		Close() error
	}

	// Result is one fetched record. The stream releases it on the next
	// FetchNext unless the user retains it.
	Result interface {
		Field(i int) values.Value
		Retain() Result
		Release()
	}
)

// Run submits a statement with parameters (a map value or Null) and returns
// a stream over its records. RUN and PULL_ALL are pipelined back-to-back;
// nothing blocks until the stream is consumed.
func (s *Session) Run(statement string, params values.Value) (ResultStream, error) {
	return s.newStream(statement, params, false)
}

// Send is Run with DISCARD_ALL instead of PULL_ALL: no records are
// returned, only the statement metadata.
func (s *Session) Send(statement string, params values.Value) (ResultStream, error) {
	return s.newStream(statement, params, true)
}

func (s *Session) newStream(statement string, params values.Value, discard bool) (ResultStream, error) {
	if s.closed {
		return nil, cos.ErrSessionEnded
	}
	if s.defunct {
		return nil, s.err
	}
	rs := &runResultStream{
		session:  s,
		log:      s.log.WithField("stream", cos.GenUUID()),
		refcount: 1, // the user's reference
	}
	rs.job.notify = rs.notifySessionEnding
	s.attachJob(&rs.job)

	if err := s.run(&rs.pool, rs.runCallback, statement, params); err != nil {
		rs.log.WithError(err).Debug("run submission failed")
		rs.setFailure(err)
		_ = rs.Close()
		return nil, err
	}
	rs.refcount++

	var err error
	if discard {
		err = s.discardAll(&rs.recordPool, rs.discardAllCallback)
	} else {
		err = s.pullAll(&rs.recordPool, rs.pullAllCallback)
	}
	if err != nil {
		rs.log.WithError(err).Debug("stream submission failed")
		rs.setFailure(err)
		_ = rs.Close()
		return nil, err
	}
	rs.refcount++

	rs.starting = 1
	rs.streaming = 1
	return rs, nil
}

// runResultStream drives the per-stream state machine: STARTING while the
// RUN response is pending, STREAMING while PULL_ALL is in flight, then a
// terminal drained, failed, or closed state.
type runResultStream struct {
	session *Session
	job     job
	log     *logrus.Entry

	pool       mpool.Pool // stream-lifetime storage
	recordPool mpool.Pool // accumulates the record currently being decoded

	refcount        uint32
	starting        uint32
	streaming       uint32
	awaitingRecords uint32

	failure      error
	errorCode    string
	errorMessage string

	fields []string

	records     *record
	recordsTail *record
	lastFetched *record

	stype  StatementType
	plan   *Plan
	counts UpdateCounts

	closed   bool
	closeErr error
}

var _ ResultStream = (*runResultStream)(nil)

// await drives the session dispatch loop until the condition reaches zero.
// It fails when the session is gone or dispatch fails; the stream failure
// is recorded either way.
func (rs *runResultStream) await(cond *uint32) error {
	if *cond == 0 {
		return nil
	}
	if rs.session == nil {
		if rs.failure == nil {
			rs.failure = cos.ErrSessionEnded
		}
		return rs.failure
	}
	if err := rs.session.syncUntil(cond); err != nil {
		rs.setFailure(err)
		return err
	}
	return nil
}

func (rs *runResultStream) CheckFailure() error {
	if rs.failure != nil {
		return rs.failure
	}
	_ = rs.await(&rs.starting)
	return rs.failure
}

func (rs *runResultStream) ErrorCode() string    { return rs.errorCode }
func (rs *runResultStream) ErrorMessage() string { return rs.errorMessage }

func (rs *runResultStream) NFields() (int, error) {
	if rs.failure != nil || rs.await(&rs.starting) != nil {
		return 0, rs.failure
	}
	return len(rs.fields), nil
}

func (rs *runResultStream) FieldName(i int) (string, error) {
	if rs.failure != nil || rs.await(&rs.starting) != nil {
		return "", rs.failure
	}
	if i < 0 || i >= len(rs.fields) {
		return "", cos.NewErrIndexRange("field", i, len(rs.fields))
	}
	return rs.fields[i], nil
}

func (rs *runResultStream) FetchNext() (Result, error) {
	if rs.closed {
		return nil, cos.ErrClosedStream
	}
	if rs.lastFetched != nil {
		rs.lastFetched.Release()
		rs.lastFetched = nil
	}
	if rs.records == nil {
		if rs.streaming == 0 {
			return nil, rs.failure // nil failure: clean end of stream
		}
		debug.Assert(rs.failure == nil)
		rs.awaitingRecords = 1
		if err := rs.await(&rs.awaitingRecords); err != nil {
			rs.awaitingRecords = 0
			return nil, rs.failure
		}
		if rs.records == nil {
			debug.Assert(rs.streaming == 0)
			return nil, rs.failure
		}
	}
	rec := rs.records
	rs.records = rec.next
	if rs.records == nil {
		rs.recordsTail = nil
	}
	rec.next = nil
	rs.lastFetched = rec
	return rec, nil
}

func (rs *runResultStream) StatementType() (StatementType, error) {
	if rs.failure != nil || rs.await(&rs.streaming) != nil {
		return StatementUnknown, rs.failure
	}
	return rs.stype, nil
}

func (rs *runResultStream) StatementPlan() (*Plan, error) {
	if rs.failure != nil || rs.await(&rs.streaming) != nil {
		return nil, rs.failure
	}
	return rs.plan, nil
}

func (rs *runResultStream) UpdateCounts() (UpdateCounts, error) {
	if rs.failure != nil || rs.await(&rs.streaming) != nil {
		return UpdateCounts{}, rs.failure
	}
	return rs.counts, nil
}

// Close is idempotent: a redundant close reports the same error. Closing
// while streaming flips the stream out of streaming so that further
// arriving records are discarded on the fly, and syncs until every queued
// callback has finished touching the stream.
func (rs *runResultStream) Close() error {
	if rs.closed {
		return rs.closeErr
	}
	rs.streaming = 0
	debug.Assert(rs.refcount > 0)
	rs.refcount--
	// even if the await fails, queued messages were drained best-effort
	err := rs.await(&rs.refcount)
	if cos.IsErrServerFailure(err) {
		err = nil // an evaluation failure is not a close failure
	}

	if rs.session != nil {
		rs.session.detachJob(&rs.job)
		rs.session = nil
	}
	if rs.lastFetched != nil {
		rs.lastFetched.Release()
		rs.lastFetched = nil
	}
	for rs.records != nil {
		next := rs.records.next
		rs.records.Release()
		rs.records = next
	}
	rs.recordsTail = nil
	rs.recordPool.Drain()
	rs.pool.Drain()
	rs.closed = true
	rs.closeErr = err
	return err
}

//
// dispatch callbacks
//

func (rs *runResultStream) runCallback(msg *wire.Message) (disposition, error) {
	rs.starting = 0
	debug.Assert(rs.refcount > 0)
	rs.refcount--
	if msg == nil || rs.session == nil {
		return respDone, nil
	}
	switch msg.Sig {
	case wire.SigFailure:
		return respDone, rs.setEvalFailure(msg)
	case wire.SigIgnored:
		if rs.failure == nil {
			rs.setFailure(rs.ignoredFailure())
		}
		return respDone, nil
	case wire.SigSuccess:
		md, err := successMetadata(msg, "RUN")
		if err != nil {
			rs.setFailure(err)
			return respDone, err
		}
		fields, err := fieldNames(md)
		if err != nil {
			rs.setFailure(err)
			return respDone, err
		}
		rs.fields = fields
		return respDone, nil
	}
	err := wire.UnexpectedMessage(msg, "RUN", "SUCCESS")
	rs.setFailure(err)
	return respDone, err
}

func (rs *runResultStream) pullAllCallback(msg *wire.Message) (disposition, error) {
	if msg != nil && msg.Sig == wire.SigRecord {
		if err := rs.appendRecord(msg); err != nil {
			rs.setFailure(err)
			return respKeep, err
		}
		return respKeep, nil
	}
	return rs.finishStream(msg, "PULL_ALL")
}

func (rs *runResultStream) discardAllCallback(msg *wire.Message) (disposition, error) {
	if msg != nil && msg.Sig == wire.SigRecord {
		err := wire.UnexpectedMessage(msg, "DISCARD_ALL", "SUCCESS")
		rs.setFailure(err)
		return respKeep, err
	}
	return rs.finishStream(msg, "DISCARD_ALL")
}

// finishStream handles the terminal response of PULL_ALL / DISCARD_ALL.
func (rs *runResultStream) finishStream(msg *wire.Message, respTo string) (disposition, error) {
	debug.Assert(rs.refcount > 0)
	rs.refcount--
	rs.streaming = 0
	rs.awaitingRecords = 0

	// not a record: keep this memory only along with the result stream
	rs.pool.Merge(&rs.recordPool)

	if msg == nil || rs.session == nil {
		return respDone, nil
	}
	switch msg.Sig {
	case wire.SigIgnored:
		if rs.failure != nil {
			return respDone, nil
		}
		if rs.session.resetting {
			rs.setFailure(cos.ErrSessionReset)
			return respDone, nil
		}
		// ignored, yet no failure occurred
		err := errors.Wrapf(cos.ErrProtocol,
			"unexpected IGNORED message in response to %s", respTo)
		rs.setFailure(err)
		return respDone, err
	case wire.SigFailure:
		debug.Assert(rs.failure == nil)
		return respDone, rs.setEvalFailure(msg)
	case wire.SigSuccess:
		md, err := successMetadata(msg, respTo)
		if err != nil {
			rs.setFailure(err)
			return respDone, err
		}
		rs.stype = statementType(md)
		rs.counts = updateCounts(md)
		plan, err := statementPlan(md)
		if err != nil {
			rs.setFailure(err)
			return respDone, err
		}
		rs.plan = plan
		return respDone, nil
	}
	err := wire.UnexpectedMessage(msg, respTo, "SUCCESS")
	rs.setFailure(err)
	return respDone, err
}

func (rs *runResultStream) appendRecord(msg *wire.Message) error {
	if len(msg.Fields) != 1 {
		return errors.Wrap(cos.ErrProtocol, "invalid number of fields in RECORD message")
	}
	list := msg.Fields[0]
	if list.Type() != values.TypeList {
		return errors.Wrapf(cos.ErrProtocol,
			"invalid field in RECORD message (got %s, expected List)", list.String())
	}
	if rs.streaming == 0 {
		// the stream was closed: discard the record's memory on the fly
		rs.recordPool.Drain()
		return nil
	}
	rec := &record{list: list, refcount: 1}
	// hand the storage of this record over to the record itself
	rec.pool = rs.recordPool
	rs.recordPool = mpool.Pool{}

	if rs.records == nil {
		debug.Assert(rs.recordsTail == nil)
		rs.records, rs.recordsTail = rec, rec
	} else {
		rs.recordsTail.next = rec
		rs.recordsTail = rec
	}
	if rs.awaitingRecords > 0 {
		rs.awaitingRecords--
	}
	return nil
}

//
// failure bookkeeping
//

// setFailure records the first failure and halts streaming.
func (rs *runResultStream) setFailure(err error) {
	debug.Assert(err != nil)
	if rs.failure == nil {
		rs.failure = err
	}
	rs.streaming = 0
	rs.awaitingRecords = 0
}

// setEvalFailure records a server FAILURE with its structured code and
// message; it is not fatal for the session.
func (rs *runResultStream) setEvalFailure(msg *wire.Message) error {
	if rs.failure != nil {
		return nil
	}
	code, message, err := failureDetails(msg, &rs.pool)
	if err != nil {
		rs.setFailure(err)
		return err
	}
	rs.errorCode, rs.errorMessage = code, message
	rs.setFailure(cos.NewErrServerFailure(code, message))
	return nil
}

func (rs *runResultStream) ignoredFailure() error {
	if rs.session != nil && rs.session.resetting {
		return cos.ErrSessionReset
	}
	return cos.ErrStatementPreviousFailure
}

// notifySessionEnding fires exactly once when the owning session tears
// down; the stream keeps no owning reference back to the session.
func (rs *runResultStream) notifySessionEnding() {
	if rs.session == nil {
		return
	}
	rs.session = nil
	if rs.streaming != 0 && rs.failure == nil {
		rs.setFailure(cos.ErrSessionEnded)
	}
}
