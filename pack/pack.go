// Package pack implements the PackStream binary serialization of the value
// model: a self-describing format where the top nibble of a marker byte
// selects the type family, with big-endian sized variants per width.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package pack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/values"
	"github.com/pkg/errors"
)

// marker bytes
const (
	mTinyString = 0x80 // low nibble: length 0..15
	mTinyList   = 0x90
	mTinyMap    = 0xA0
	mTinyStruct = 0xB0

	mNull    = 0xC0
	mFloat64 = 0xC1
	mFalse   = 0xC2
	mTrue    = 0xC3

	mInt8  = 0xC8
	mInt16 = 0xC9
	mInt32 = 0xCA
	mInt64 = 0xCB

	mString8  = 0xD0
	mString16 = 0xD1
	mString32 = 0xD2

	mList8  = 0xD4
	mList16 = 0xD5
	mList32 = 0xD6

	mMap8  = 0xD8
	mMap16 = 0xD9
	mMap32 = 0xDA

	mStruct8  = 0xDC
	mStruct16 = 0xDD
)

// Encoder serializes values to a byte sink; it fails only if the sink fails,
// or when a value violates a protocol invariant (non-string map key).
type Encoder struct {
	w       io.Writer
	scratch [9]byte
}

func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

func (e *Encoder) Encode(v values.Value) error {
	switch v.Type() {
	case values.TypeNull:
		return e.marker(mNull)
	case values.TypeBool:
		if v.Bool() {
			return e.marker(mTrue)
		}
		return e.marker(mFalse)
	case values.TypeInt:
		return e.encodeInt(v.Int())
	case values.TypeFloat:
		e.scratch[0] = mFloat64
		binary.BigEndian.PutUint64(e.scratch[1:9], math.Float64bits(v.Float()))
		_, err := e.w.Write(e.scratch[:9])
		return err
	case values.TypeString:
		s := v.Str()
		if err := e.sized(mTinyString, mString8, mString16, mString32, len(s)); err != nil {
			return err
		}
		_, err := io.WriteString(e.w, s)
		return err
	case values.TypeList:
		if err := e.sized(mTinyList, mList8, mList16, mList32, v.Len()); err != nil {
			return err
		}
		for _, it := range v.Items() {
			if err := e.Encode(it); err != nil {
				return err
			}
		}
		return nil
	case values.TypeMap:
		if err := e.sized(mTinyMap, mMap8, mMap16, mMap32, v.Len()); err != nil {
			return err
		}
		for _, ent := range v.Entries() {
			if ent.Key.Type() != values.TypeString {
				return cos.ErrInvalidMapKeyType
			}
			if err := e.Encode(ent.Key); err != nil {
				return err
			}
			if err := e.Encode(ent.Val); err != nil {
				return err
			}
		}
		return nil
	default: // struct kinds
		n := v.Len()
		switch {
		case n < 0x10:
			e.scratch[0], e.scratch[1] = mTinyStruct|byte(n), v.Sig()
			if _, err := e.w.Write(e.scratch[:2]); err != nil {
				return err
			}
		case n < 0x100:
			e.scratch[0], e.scratch[1], e.scratch[2] = mStruct8, byte(n), v.Sig()
			if _, err := e.w.Write(e.scratch[:3]); err != nil {
				return err
			}
		default:
			e.scratch[0] = mStruct16
			binary.BigEndian.PutUint16(e.scratch[1:3], uint16(n))
			e.scratch[3] = v.Sig()
			if _, err := e.w.Write(e.scratch[:4]); err != nil {
				return err
			}
		}
		for _, f := range v.Items() {
			if err := e.Encode(f); err != nil {
				return err
			}
		}
		return nil
	}
}

func (e *Encoder) marker(m byte) error {
	e.scratch[0] = m
	_, err := e.w.Write(e.scratch[:1])
	return err
}

func (e *Encoder) encodeInt(i int64) error {
	switch {
	case i >= -16 && i < 128:
		return e.marker(byte(i)) // tiny int, two's complement
	case i >= math.MinInt8 && i <= math.MaxInt8:
		e.scratch[0], e.scratch[1] = mInt8, byte(i)
		_, err := e.w.Write(e.scratch[:2])
		return err
	case i >= math.MinInt16 && i <= math.MaxInt16:
		e.scratch[0] = mInt16
		binary.BigEndian.PutUint16(e.scratch[1:3], uint16(i))
		_, err := e.w.Write(e.scratch[:3])
		return err
	case i >= math.MinInt32 && i <= math.MaxInt32:
		e.scratch[0] = mInt32
		binary.BigEndian.PutUint32(e.scratch[1:5], uint32(i))
		_, err := e.w.Write(e.scratch[:5])
		return err
	default:
		e.scratch[0] = mInt64
		binary.BigEndian.PutUint64(e.scratch[1:9], uint64(i))
		_, err := e.w.Write(e.scratch[:9])
		return err
	}
}

// sized writes the marker for a string/list/map of the given length,
// choosing the smallest size class.
func (e *Encoder) sized(tiny, m8, m16, m32 byte, n int) error {
	switch {
	case n < 0x10:
		return e.marker(tiny | byte(n))
	case n < 0x100:
		e.scratch[0], e.scratch[1] = m8, byte(n)
		_, err := e.w.Write(e.scratch[:2])
		return err
	case n < 0x10000:
		e.scratch[0] = m16
		binary.BigEndian.PutUint16(e.scratch[1:3], uint16(n))
		_, err := e.w.Write(e.scratch[:3])
		return err
	default:
		if n > math.MaxUint32 {
			return errors.Wrapf(cos.ErrProtocol, "length %d exceeds encoding", n)
		}
		e.scratch[0] = m32
		binary.BigEndian.PutUint32(e.scratch[1:5], uint32(n))
		_, err := e.w.Write(e.scratch[:5])
		return err
	}
}
