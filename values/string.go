/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package values

import (
	"strconv"
	"strings"
)

// String renders the value as a Cypher-ish literal. Used by the shell
// renderers and for logging.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.typ {
	case TypeNull:
		sb.WriteString("null")
	case TypeBool:
		if v.num != 0 {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case TypeInt:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case TypeFloat:
		sb.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case TypeString:
		sb.WriteString(strconv.Quote(v.str))
	case TypeList:
		sb.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			it.render(sb)
		}
		sb.WriteByte(']')
	case TypeMap:
		renderMap(sb, v)
	case TypeNode:
		renderNode(sb, v)
	case TypeRelationship, TypeUnboundRelationship:
		sb.WriteString("-[:")
		sb.WriteString(v.RelType())
		renderProps(sb, v.RelProps())
		sb.WriteString("]-")
	case TypePath:
		renderPath(sb, v)
	default:
		sb.WriteString("struct<")
		sb.WriteString(strconv.FormatUint(uint64(v.sig), 16))
		sb.WriteByte('>')
		sb.WriteByte('(')
		for i, it := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			it.render(sb)
		}
		sb.WriteByte(')')
	}
}

func renderMap(sb *strings.Builder, v Value) {
	sb.WriteByte('{')
	for i := range v.entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		e := &v.entries[i]
		if e.Key.typ == TypeString {
			sb.WriteString(e.Key.str)
		} else {
			e.Key.render(sb)
		}
		sb.WriteByte(':')
		e.Val.render(sb)
	}
	sb.WriteByte('}')
}

func renderNode(sb *strings.Builder, v Value) {
	sb.WriteByte('(')
	for _, l := range v.Item(1).Items() {
		sb.WriteByte(':')
		sb.WriteString(l.Str())
	}
	renderProps(sb, v.NodeProps())
	sb.WriteByte(')')
}

func renderProps(sb *strings.Builder, props Value) {
	if props.Len() > 0 {
		renderMap(sb, props)
	}
}

func renderPath(sb *strings.Builder, v Value) {
	nodes, rels, seq := v.PathNodes(), v.PathRels(), v.PathSequence()
	nodes.Item(0).render(sb)
	// sequence alternates (rel-index, node-index); relationship indexes are
	// 1-based and negative when traversed in reverse
	for i := 0; i+1 < seq.Len(); i += 2 {
		ridx := seq.Item(i).Int()
		nidx := int(seq.Item(i + 1).Int())
		if ridx < 0 {
			sb.WriteByte('<')
			rels.Item(int(-ridx) - 1).render(sb)
		} else {
			rels.Item(int(ridx) - 1).render(sb)
		}
		if ridx >= 0 {
			sb.WriteByte('>')
		}
		nodes.Item(nidx).render(sb)
	}
}

// Interface converts the value to plain Go data (for JSON rendering):
// nil, bool, int64, float64, string, []any, and map[string]any; nodes and
// relationships convert to maps that expose their domain fields, while
// paths, unbound relationships, and other structs convert to their
// literal string.
func (v Value) Interface() any {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeBool:
		return v.Bool()
	case TypeInt:
		return v.Int()
	case TypeFloat:
		return v.Float()
	case TypeString:
		return v.str
	case TypeList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case TypeMap:
		out := make(map[string]any, len(v.entries))
		for i := range v.entries {
			out[v.entries[i].Key.Str()] = v.entries[i].Val.Interface()
		}
		return out
	case TypeNode:
		labels, _ := v.NodeLabels()
		return map[string]any{
			"id":         v.NodeID(),
			"labels":     labels,
			"properties": v.NodeProps().Interface(),
		}
	case TypeRelationship:
		return map[string]any{
			"id":         v.RelID(),
			"start":      v.RelStartID(),
			"end":        v.RelEndID(),
			"type":       v.RelType(),
			"properties": v.RelProps().Interface(),
		}
	default:
		return v.String()
	}
}
