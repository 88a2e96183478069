/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package pack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/pkg/errors"
)

// guards against absurd container lengths before allocating
const maxDecodeLen = 1 << 28

// Decoder deserializes values from a byte source. String storage is copied
// into the target pool, so decoded values live exactly as long as the pool.
type Decoder struct {
	r       io.Reader
	pool    *mpool.Pool
	scratch [8]byte
}

func NewDecoder(r io.Reader, pool *mpool.Pool) *Decoder {
	return &Decoder{r: r, pool: pool}
}

func (d *Decoder) Decode() (values.Value, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:1]); err != nil {
		return values.Null, err
	}
	marker := d.scratch[0]

	// tiny ints first: 0x00..0x7F and 0xF0..0xFF
	if marker < 0x80 {
		return values.Int(int64(marker)), nil
	}
	if marker >= 0xF0 {
		return values.Int(int64(int8(marker))), nil
	}

	switch marker & 0xF0 {
	case mTinyString:
		return d.str(int(marker & 0x0F))
	case mTinyList:
		return d.list(int(marker & 0x0F))
	case mTinyMap:
		return d.mapv(int(marker & 0x0F))
	case mTinyStruct:
		return d.structv(int(marker & 0x0F))
	}

	switch marker {
	case mNull:
		return values.Null, nil
	case mTrue:
		return values.Bool(true), nil
	case mFalse:
		return values.Bool(false), nil
	case mFloat64:
		if _, err := io.ReadFull(d.r, d.scratch[:8]); err != nil {
			return values.Null, eof2proto(err)
		}
		return values.Float(math.Float64frombits(binary.BigEndian.Uint64(d.scratch[:8]))), nil
	case mInt8:
		if _, err := io.ReadFull(d.r, d.scratch[:1]); err != nil {
			return values.Null, eof2proto(err)
		}
		return values.Int(int64(int8(d.scratch[0]))), nil
	case mInt16:
		if _, err := io.ReadFull(d.r, d.scratch[:2]); err != nil {
			return values.Null, eof2proto(err)
		}
		return values.Int(int64(int16(binary.BigEndian.Uint16(d.scratch[:2])))), nil
	case mInt32:
		if _, err := io.ReadFull(d.r, d.scratch[:4]); err != nil {
			return values.Null, eof2proto(err)
		}
		return values.Int(int64(int32(binary.BigEndian.Uint32(d.scratch[:4])))), nil
	case mInt64:
		if _, err := io.ReadFull(d.r, d.scratch[:8]); err != nil {
			return values.Null, eof2proto(err)
		}
		return values.Int(int64(binary.BigEndian.Uint64(d.scratch[:8]))), nil
	case mString8, mString16, mString32:
		n, err := d.length(marker - mString8)
		if err != nil {
			return values.Null, err
		}
		return d.str(n)
	case mList8, mList16, mList32:
		n, err := d.length(marker - mList8)
		if err != nil {
			return values.Null, err
		}
		return d.list(n)
	case mMap8, mMap16, mMap32:
		n, err := d.length(marker - mMap8)
		if err != nil {
			return values.Null, err
		}
		return d.mapv(n)
	case mStruct8, mStruct16:
		n, err := d.length(marker - mStruct8)
		if err != nil {
			return values.Null, err
		}
		return d.structv(n)
	}
	return values.Null, errors.Wrapf(cos.ErrProtocol, "malformed marker 0x%02X", marker)
}

// length reads an 8-, 16-, or 32-bit big-endian size (width 0, 1, 2).
func (d *Decoder) length(width byte) (int, error) {
	var n int
	switch width {
	case 0:
		if _, err := io.ReadFull(d.r, d.scratch[:1]); err != nil {
			return 0, eof2proto(err)
		}
		n = int(d.scratch[0])
	case 1:
		if _, err := io.ReadFull(d.r, d.scratch[:2]); err != nil {
			return 0, eof2proto(err)
		}
		n = int(binary.BigEndian.Uint16(d.scratch[:2]))
	default:
		if _, err := io.ReadFull(d.r, d.scratch[:4]); err != nil {
			return 0, eof2proto(err)
		}
		n = int(binary.BigEndian.Uint32(d.scratch[:4]))
	}
	if n > maxDecodeLen {
		return 0, errors.Wrapf(cos.ErrProtocol, "length %d out of bounds", n)
	}
	return n, nil
}

func (d *Decoder) str(n int) (values.Value, error) {
	if n == 0 {
		return values.String(""), nil
	}
	b := d.pool.Alloc(n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return values.Null, eof2proto(err)
	}
	// borrow pool storage: the string lives exactly as long as the pool
	return values.String(cos.UnsafeS(b)), nil
}

func (d *Decoder) list(n int) (values.Value, error) {
	if n == 0 {
		return values.List(nil), nil
	}
	items := make([]values.Value, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return values.Null, eof2proto(err)
		}
		items[i] = v
	}
	return values.List(items), nil
}

func (d *Decoder) mapv(n int) (values.Value, error) {
	if n == 0 {
		return values.Map(nil), nil
	}
	entries := make([]values.Entry, n)
	for i := 0; i < n; i++ {
		k, err := d.Decode()
		if err != nil {
			return values.Null, eof2proto(err)
		}
		if k.Type() != values.TypeString {
			return values.Null, errors.Wrap(cos.ErrProtocol, cos.ErrInvalidMapKeyType.Error())
		}
		v, err := d.Decode()
		if err != nil {
			return values.Null, eof2proto(err)
		}
		entries[i] = values.Entry{Key: k, Val: v}
	}
	return values.Map(entries), nil
}

func (d *Decoder) structv(n int) (values.Value, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:1]); err != nil {
		return values.Null, eof2proto(err)
	}
	sig := d.scratch[0]
	var fields []values.Value
	if n > 0 {
		fields = make([]values.Value, n)
		for i := 0; i < n; i++ {
			v, err := d.Decode()
			if err != nil {
				return values.Null, eof2proto(err)
			}
			fields[i] = v
		}
	}
	return values.Struct(sig, fields), nil
}

// a value truncated mid-encoding is a protocol error, not a clean EOF
func eof2proto(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(cos.ErrProtocol, "truncated value")
	}
	return err
}
