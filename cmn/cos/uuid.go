// Package cos provides common low-level types and utilities for all graphbolt packages
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package cos

import (
	"math/rand"
	"time"

	"github.com/teris-io/shortid"
)

// Alphabet for generating session IDs: a permutation of the 64 characters
// of shortid.DEFAULT_ABC.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

// session-ID length, as per https://github.com/teris-io/shortid#id-length
const LenShortID = 9

var sid *shortid.Shortid

func init() {
	sid = shortid.MustNew(1 /*worker*/, uuidABC, uint64(time.Now().UnixNano())|1)
}

// GenUUID generates a unique ID for log correlation of sessions and streams.
func GenUUID() (uuid string) {
	uuid = sid.MustGenerate()
	if !isAlpha(uuid[0]) {
		uuid = string(rune('A'+rand.Intn(26))) + uuid
	}
	return uuid
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
