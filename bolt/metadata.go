/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

import (
	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/values"
	"github.com/graphbolt/graphbolt/wire"
	"github.com/pkg/errors"
)

// StatementType classifies a completed statement, from the `type` entry of
// the PULL_ALL / DISCARD_ALL SUCCESS metadata.
type StatementType int8

const (
	StatementUnknown StatementType = iota
	StatementReadOnly
	StatementReadWrite
	StatementWriteOnly
	StatementSchemaWrite
)

func (t StatementType) String() string {
	switch t {
	case StatementReadOnly:
		return "read-only"
	case StatementReadWrite:
		return "read-write"
	case StatementWriteOnly:
		return "write-only"
	case StatementSchemaWrite:
		return "schema-write"
	}
	return "unknown"
}

// UpdateCounts aggregates the `stats` entry of the SUCCESS metadata.
type UpdateCounts struct {
	NodesCreated         uint64
	NodesDeleted         uint64
	RelationshipsCreated uint64
	RelationshipsDeleted uint64
	PropertiesSet        uint64
	LabelsAdded          uint64
	LabelsRemoved        uint64
	IndexesAdded         uint64
	IndexesRemoved       uint64
	ConstraintsAdded     uint64
	ConstraintsRemoved   uint64
}

// Plan is the decoded `plan` or `profile` subtree of the SUCCESS metadata.
type Plan struct {
	OperatorType string
	Arguments    values.Value
	Identifiers  []string
	Children     []*Plan

	// profile-only statistics
	IsProfile bool
	DbHits    uint64
	Rows      uint64
}

// successMetadata validates the single map argument of a SUCCESS (or
// FAILURE) message.
func successMetadata(msg *wire.Message, respTo string) (values.Value, error) {
	if len(msg.Fields) != 1 {
		return values.Null, errors.Wrapf(cos.ErrProtocol,
			"invalid number of fields in %s message (in response to %s)", msg, respTo)
	}
	md := msg.Fields[0]
	if md.Type() != values.TypeMap {
		return values.Null, errors.Wrapf(cos.ErrProtocol,
			"invalid %s metadata (got %s, expected Map)", msg, md.String())
	}
	return md, nil
}

// fieldNames extracts the `fields` list from the RUN SUCCESS metadata.
func fieldNames(md values.Value) ([]string, error) {
	list, ok := md.MapGet("fields")
	if !ok {
		return nil, nil
	}
	if list.Type() != values.TypeList {
		return nil, errors.Wrap(cos.ErrProtocol, "fields metadata is not a List")
	}
	names := make([]string, 0, list.Len())
	for _, it := range list.Items() {
		if it.Type() != values.TypeString {
			return nil, errors.Wrap(cos.ErrProtocol, "fieldname is not a String")
		}
		names = append(names, it.Str())
	}
	return names, nil
}

// failureDetails extracts code and message from a FAILURE message, copying
// both into the given pool so they outlive the dispatch.
func failureDetails(msg *wire.Message, pool *mpool.Pool) (code, message string, err error) {
	md, err := successMetadata(msg, "request")
	if err != nil {
		return "", "", err
	}
	if v, ok := md.MapGet("code"); ok && v.Type() == values.TypeString {
		code = pool.CopyString(v.Str())
	}
	if v, ok := md.MapGet("message"); ok && v.Type() == values.TypeString {
		message = pool.CopyString(v.Str())
	}
	return code, message, nil
}

func statementType(md values.Value) StatementType {
	v, ok := md.MapGet("type")
	if !ok || v.Type() != values.TypeString {
		return StatementUnknown
	}
	switch v.Str() {
	case "r":
		return StatementReadOnly
	case "rw":
		return StatementReadWrite
	case "w":
		return StatementWriteOnly
	case "s":
		return StatementSchemaWrite
	}
	return StatementUnknown
}

func updateCounts(md values.Value) (uc UpdateCounts) {
	stats, ok := md.MapGet("stats")
	if !ok || stats.Type() != values.TypeMap {
		return uc
	}
	count := func(key string) uint64 {
		v, ok := stats.MapGet(key)
		if !ok || v.Type() != values.TypeInt || v.Int() < 0 {
			return 0
		}
		return uint64(v.Int())
	}
	uc.NodesCreated = count("nodes-created")
	uc.NodesDeleted = count("nodes-deleted")
	uc.RelationshipsCreated = count("relationships-created")
	uc.RelationshipsDeleted = count("relationships-deleted")
	uc.PropertiesSet = count("properties-set")
	uc.LabelsAdded = count("labels-added")
	uc.LabelsRemoved = count("labels-removed")
	uc.IndexesAdded = count("indexes-added")
	uc.IndexesRemoved = count("indexes-removed")
	uc.ConstraintsAdded = count("constraints-added")
	uc.ConstraintsRemoved = count("constraints-removed")
	return uc
}

// statementPlan decodes the `plan` or `profile` subtree, whichever is
// present.
func statementPlan(md values.Value) (*Plan, error) {
	if sub, ok := md.MapGet("profile"); ok {
		return decodePlan(sub, true)
	}
	if sub, ok := md.MapGet("plan"); ok {
		return decodePlan(sub, false)
	}
	return nil, nil
}

func decodePlan(v values.Value, profile bool) (*Plan, error) {
	if v.Type() != values.TypeMap {
		return nil, errors.Wrap(cos.ErrProtocol, "plan metadata is not a Map")
	}
	p := &Plan{IsProfile: profile}
	if op, ok := v.MapGet("operatorType"); ok && op.Type() == values.TypeString {
		p.OperatorType = op.Str()
	}
	if args, ok := v.MapGet("args"); ok {
		p.Arguments = args
	}
	if ids, ok := v.MapGet("identifiers"); ok && ids.Type() == values.TypeList {
		p.Identifiers = make([]string, 0, ids.Len())
		for _, it := range ids.Items() {
			if it.Type() == values.TypeString {
				p.Identifiers = append(p.Identifiers, it.Str())
			}
		}
	}
	if profile {
		if v, ok := v.MapGet("dbHits"); ok && v.Type() == values.TypeInt {
			p.DbHits = uint64(v.Int())
		}
		if v, ok := v.MapGet("rows"); ok && v.Type() == values.TypeInt {
			p.Rows = uint64(v.Int())
		}
	}
	if children, ok := v.MapGet("children"); ok && children.Type() == values.TypeList {
		p.Children = make([]*Plan, 0, children.Len())
		for _, c := range children.Items() {
			child, err := decodePlan(c, profile)
			if err != nil {
				return nil, err
			}
			p.Children = append(p.Children, child)
		}
	}
	return p, nil
}
