/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

import (
	"github.com/graphbolt/graphbolt/cmn/debug"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
)

// record is one RECORD message: the field list plus the pool its values
// were decoded into, detached from the stream at append time so releasing
// the record drops exactly this record's storage.
type record struct {
	next     *record
	list     values.Value
	pool     mpool.Pool
	refcount uint32
}

var _ Result = (*record)(nil)

// Field returns the i'th value of the record; Null when out of range.
func (r *record) Field(i int) values.Value { return r.list.Item(i) }

func (r *record) Retain() Result {
	debug.Assert(r.refcount > 0)
	r.refcount++
	return r
}

func (r *record) Release() {
	debug.Assert(r.refcount > 0)
	r.refcount--
	if r.refcount == 0 {
		r.pool.Drain()
	}
}
