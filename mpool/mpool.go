// Package mpool provides bump-allocated memory arenas that tie the lifetime
// of decoded wire values to the record or stream that references them.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package mpool

import (
	"github.com/graphbolt/graphbolt/cmn/debug"
)

const (
	// DefaultBlockSize is the bump-block granularity; allocations larger
	// than this get a dedicated block.
	DefaultBlockSize = 4096
)

// Pool is a stack of bump-allocated blocks owned by a single logical
// consumer. There is no individual free: the pool is released as a whole
// via Drain, or handed off wholesale via Merge.
//
// A Pool descriptor is moved, not shared: Merge empties the source, and the
// zero Pool is ready for use. Pools are not safe for concurrent use.
type Pool struct {
	blocks    [][]byte
	off       int // offset into the last block
	blockSize int
}

// New returns an empty pool with the given block granularity.
// blockSize <= 0 selects DefaultBlockSize.
func New(blockSize int) Pool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return Pool{blockSize: blockSize}
}

// Alloc returns an n-byte slice backed by pool storage. The returned bytes
// are zeroed and remain valid until the pool is drained.
func (p *Pool) Alloc(n int) []byte {
	debug.Assert(n >= 0)
	if n == 0 {
		return nil
	}
	if p.blockSize == 0 {
		p.blockSize = DefaultBlockSize
	}
	if n > p.blockSize {
		// oversized: dedicated block, inserted below the current bump block
		// so the bump offset keeps referring to the top of the stack
		blk := make([]byte, n)
		if l := len(p.blocks); l > 0 {
			p.blocks = append(p.blocks, p.blocks[l-1])
			p.blocks[l-1] = blk
		} else {
			p.blocks = append(p.blocks, blk)
		}
		return blk
	}
	if l := len(p.blocks); l == 0 || p.off+n > len(p.blocks[l-1]) {
		p.blocks = append(p.blocks, make([]byte, p.blockSize))
		p.off = 0
	}
	blk := p.blocks[len(p.blocks)-1]
	b := blk[p.off : p.off+n : p.off+n]
	p.off += n
	return b
}

// CopyBytes stores a copy of b in the pool.
func (p *Pool) CopyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	dst := p.Alloc(len(b))
	copy(dst, b)
	return dst
}

// CopyString stores a copy of s in the pool.
func (p *Pool) CopyString(s string) string {
	if len(s) == 0 {
		return ""
	}
	dst := p.Alloc(len(s))
	copy(dst, s)
	return string(dst)
}

// Merge appends all of src's blocks to p and empties src. Storage previously
// allocated from src remains valid and is now released by draining p.
func (p *Pool) Merge(src *Pool) {
	if src == p || len(src.blocks) == 0 {
		return
	}
	if len(p.blocks) == 0 {
		p.blocks, p.off = src.blocks, src.off
	} else {
		// keep p's bump block on top
		top := p.blocks[len(p.blocks)-1]
		p.blocks = append(p.blocks[:len(p.blocks)-1], src.blocks...)
		p.blocks = append(p.blocks, top)
	}
	src.blocks, src.off = nil, 0
}

// Drain releases all blocks. The pool is reusable afterwards.
func (p *Pool) Drain() {
	p.blocks, p.off = nil, 0
}

// NumBlocks is used by tests and debug logging.
func (p *Pool) NumBlocks() int { return len(p.blocks) }
