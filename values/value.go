// Package values implements the typed value model of the Bolt protocol:
// a compact tagged variant covering null, booleans, integers, floats,
// strings, lists, maps, and the graph structure types.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package values

import (
	"math"

	"github.com/graphbolt/graphbolt/cmn/cos"
)

type Type int8

const (
	TypeNull Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeList
	TypeMap
	TypeNode
	TypeRelationship
	TypeUnboundRelationship
	TypePath
	TypeStruct
)

// struct signatures identifying graph domain types on the wire
const (
	SigNode                = 0x4E
	SigRelationship        = 0x52
	SigPath                = 0x50
	SigUnboundRelationship = 0x72
)

type (
	// Value is an immutable tagged variant. Composite values borrow the
	// slices they were constructed with and do not own their backing
	// storage; the owner is whichever mpool produced them.
	Value struct {
		str     string
		items   []Value
		entries []Entry
		num     uint64
		typ     Type
		sig     byte
	}
	// Entry is a single map entry; by protocol invariant the key is a
	// string value.
	Entry struct {
		Key Value
		Val Value
	}
)

// Null is the singleton null value (also the zero Value).
var Null = Value{typ: TypeNull}

//
// constructors
//

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{typ: TypeBool, num: n}
}

func Int(i int64) Value     { return Value{typ: TypeInt, num: uint64(i)} }
func Float(f float64) Value { return Value{typ: TypeFloat, num: math.Float64bits(f)} }
func String(s string) Value { return Value{typ: TypeString, str: s} }

func List(items []Value) Value  { return Value{typ: TypeList, items: items} }
func Map(entries []Entry) Value { return Value{typ: TypeMap, entries: entries} }

func Ent(key string, v Value) Entry {
	return Entry{Key: String(key), Val: v}
}

// Struct constructs a generic struct value; known graph signatures are
// reported through Type as their domain type.
func Struct(sig byte, fields []Value) Value {
	return Value{typ: structType(sig), sig: sig, items: fields}
}

func structType(sig byte) Type {
	switch sig {
	case SigNode:
		return TypeNode
	case SigRelationship:
		return TypeRelationship
	case SigUnboundRelationship:
		return TypeUnboundRelationship
	case SigPath:
		return TypePath
	}
	return TypeStruct
}

//
// accessors
//

func (v Value) Type() Type     { return v.typ }
func (v Value) IsNull() bool   { return v.typ == TypeNull }
func (v Value) IsStruct() bool { return v.typ >= TypeNode }
func (v Value) Bool() bool     { return v.num != 0 }
func (v Value) Int() int64     { return int64(v.num) }
func (v Value) Float() float64 { return math.Float64frombits(v.num) }
func (v Value) Str() string    { return v.str }
func (v Value) Sig() byte      { return v.sig }

// Len returns the number of items, entries, or struct fields.
func (v Value) Len() int {
	if v.typ == TypeMap {
		return len(v.entries)
	}
	return len(v.items)
}

// Item returns the i'th list item or struct field; Null when out of range.
func (v Value) Item(i int) Value {
	if i < 0 || i >= len(v.items) {
		return Null
	}
	return v.items[i]
}

func (v Value) Items() []Value   { return v.items }
func (v Value) Entries() []Entry { return v.entries }

// MapGet returns the value for a string key; (Null, false) when absent.
func (v Value) MapGet(key string) (Value, bool) {
	for i := range v.entries {
		if v.entries[i].Key.typ == TypeString && v.entries[i].Key.str == key {
			return v.entries[i].Val, true
		}
	}
	return Null, false
}

//
// graph structure views
//

// NodeID returns the identity field of a node value.
func (v Value) NodeID() int64 { return v.Item(0).Int() }

// NodeLabels returns the label strings of a node value; fails with
// ErrInvalidLabelType if any label is not a string.
func (v Value) NodeLabels() ([]string, error) {
	list := v.Item(1)
	labels := make([]string, 0, list.Len())
	for _, it := range list.Items() {
		if it.typ != TypeString {
			return nil, cos.ErrInvalidLabelType
		}
		labels = append(labels, it.str)
	}
	return labels, nil
}

// NodeProps returns the property map of a node value.
func (v Value) NodeProps() Value { return v.Item(2) }

// relationship fields: [id, start, end, type, props]
func (v Value) RelID() int64      { return v.Item(0).Int() }
func (v Value) RelStartID() int64 { return v.Item(1).Int() }
func (v Value) RelEndID() int64   { return v.Item(2).Int() }

func (v Value) RelType() string {
	if v.typ == TypeUnboundRelationship {
		// unbound: [id, type, props]
		return v.Item(1).Str()
	}
	return v.Item(3).Str()
}

func (v Value) RelProps() Value {
	if v.typ == TypeUnboundRelationship {
		return v.Item(2)
	}
	return v.Item(4)
}

// path fields: [nodes, relationships, sequence]
func (v Value) PathNodes() Value    { return v.Item(0) }
func (v Value) PathRels() Value     { return v.Item(1) }
func (v Value) PathSequence() Value { return v.Item(2) }
