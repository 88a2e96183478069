//go:build debug

// Package debug provides debug utilities
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package debug

import (
	"fmt"
)

func ON() bool { return true }

func Assert(cond bool, a ...any) {
	if !cond {
		if len(a) > 0 {
			panic("assertion failed: " + fmt.Sprint(a...))
		}
		panic("assertion failed")
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func AssertFunc(f func() bool, a ...any) { Assert(f(), a...) }

func Func(f func()) { f() }
