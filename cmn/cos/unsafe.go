// Package cos provides common low-level types and utilities for all graphbolt packages
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package cos

import "unsafe"

// UnsafeS casts bytes to an immutable string without copying. The caller
// must guarantee the bytes are never mutated afterwards.
func UnsafeS(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// UnsafeB casts a string to bytes without copying; the result must not be
// mutated.
func UnsafeB(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
