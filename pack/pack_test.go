/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package pack_test

import (
	"bytes"
	"math"
	"strings"

	"github.com/graphbolt/graphbolt/cmn/cos"
	"github.com/graphbolt/graphbolt/mpool"
	"github.com/graphbolt/graphbolt/pack"
	"github.com/graphbolt/graphbolt/values"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func roundTrip(v values.Value) values.Value {
	var buf bytes.Buffer
	Expect(pack.NewEncoder(&buf).Encode(v)).To(Succeed())
	pool := mpool.New(0)
	out, err := pack.NewDecoder(&buf, &pool).Decode()
	Expect(err).NotTo(HaveOccurred())
	return out
}

func encoded(v values.Value) []byte {
	var buf bytes.Buffer
	Expect(pack.NewEncoder(&buf).Encode(v)).To(Succeed())
	return buf.Bytes()
}

func decode(b []byte) (values.Value, error) {
	pool := mpool.New(0)
	return pack.NewDecoder(bytes.NewReader(b), &pool).Decode()
}

var _ = Describe("Pack", func() {
	Describe("round-trip", func() {
		boundaries := []values.Value{
			values.Null,
			values.Bool(true), values.Bool(false),
			values.Int(0), values.Int(-1), values.Int(-16), values.Int(-17),
			values.Int(127), values.Int(128),
			values.Int(math.MinInt8), values.Int(math.MaxInt8),
			values.Int(math.MinInt16), values.Int(math.MaxInt16),
			values.Int(math.MinInt32), values.Int(math.MaxInt32),
			values.Int(math.MinInt64), values.Int(math.MaxInt64),
			values.Float(0), values.Float(math.Copysign(0, -1)),
			values.Float(math.NaN()), values.Float(math.Inf(1)),
			values.String(""), values.String("x"),
			values.String(strings.Repeat("a", 15)),
			values.String(strings.Repeat("a", 255)),
			values.String(strings.Repeat("a", 65535)),
			values.String(strings.Repeat("a", 65536)),
			values.List(nil),
		}

		It("preserves every scalar boundary value", func() {
			for _, v := range boundaries {
				Expect(values.Eq(roundTrip(v), v)).To(BeTrue(), "value %s", v.String())
			}
		})

		It("preserves lists at the tiny/sized boundary", func() {
			for _, n := range []int{15, 16, 256} {
				items := make([]values.Value, n)
				for i := range items {
					items[i] = values.Int(int64(i))
				}
				v := values.List(items)
				Expect(values.Eq(roundTrip(v), v)).To(BeTrue(), "list len %d", n)
			}
		})

		It("preserves a nested map of depth 4", func() {
			v := values.Map([]values.Entry{values.Ent("a",
				values.Map([]values.Entry{values.Ent("b",
					values.Map([]values.Entry{values.Ent("c",
						values.Map([]values.Entry{values.Ent("d", values.Int(4))}),
					)}),
				)}),
			)})
			Expect(values.Eq(roundTrip(v), v)).To(BeTrue())
		})

		It("preserves graph structs", func() {
			node := values.Struct(values.SigNode, []values.Value{
				values.Int(1),
				values.List([]values.Value{values.String("L")}),
				values.Map([]values.Entry{values.Ent("k", values.String("v"))}),
			})
			out := roundTrip(node)
			Expect(out.Type()).To(Equal(values.TypeNode))
			Expect(values.Eq(out, node)).To(BeTrue())
		})
	})

	Describe("encoding", func() {
		It("uses tiny markers for small values", func() {
			Expect(encoded(values.Int(1))).To(Equal([]byte{0x01}))
			Expect(encoded(values.Int(-1))).To(Equal([]byte{0xFF}))
			Expect(encoded(values.Int(-16))).To(Equal([]byte{0xF0}))
			Expect(encoded(values.String("a"))).To(Equal([]byte{0x81, 'a'}))
			Expect(encoded(values.List(nil))).To(Equal([]byte{0x90}))
			Expect(encoded(values.Map(nil))).To(Equal([]byte{0xA0}))
		})

		It("is big-endian for sized ints", func() {
			Expect(encoded(values.Int(0x1234))).To(Equal([]byte{0xC9, 0x12, 0x34}))
			Expect(encoded(values.Int(256))).To(Equal([]byte{0xC9, 0x01, 0x00}))
		})

		It("encodes tiny structs as 0xB<n> sig fields", func() {
			v := values.Struct(0x10, []values.Value{values.String("RETURN 1"), values.Map(nil)})
			b := encoded(v)
			Expect(b[0]).To(Equal(byte(0xB2)))
			Expect(b[1]).To(Equal(byte(0x10)))
		})

		It("rejects non-string map keys", func() {
			v := values.Map([]values.Entry{{Key: values.Int(1), Val: values.Int(2)}})
			var buf bytes.Buffer
			err := pack.NewEncoder(&buf).Encode(v)
			Expect(err).To(MatchError(cos.ErrInvalidMapKeyType))
		})
	})

	Describe("decoding", func() {
		It("fails on a malformed marker", func() {
			_, err := decode([]byte{0xC7})
			Expect(cos.IsErrProtocol(err)).To(BeTrue())
		})

		It("fails on a truncated value", func() {
			_, err := decode([]byte{0xC9, 0x12}) // INT_16 with one byte
			Expect(cos.IsErrProtocol(err)).To(BeTrue())
		})

		It("fails on a truncated string payload", func() {
			_, err := decode([]byte{0x85, 'a', 'b'})
			Expect(cos.IsErrProtocol(err)).To(BeTrue())
		})

		It("fails on non-string map keys", func() {
			_, err := decode([]byte{0xA1, 0x01, 0x02})
			Expect(cos.IsErrProtocol(err)).To(BeTrue())
		})

		It("copies string storage into the pool", func() {
			src := encoded(values.String("pooled"))
			pool := mpool.New(0)
			v, err := pack.NewDecoder(bytes.NewReader(src), &pool).Decode()
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Str()).To(Equal("pooled"))
			Expect(pool.NumBlocks()).To(BeNumerically(">", 0))
		})
	})
})
