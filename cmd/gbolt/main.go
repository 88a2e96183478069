// gbolt is an interactive shell for Bolt graph databases.
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package main

import (
	"os"

	"github.com/graphbolt/graphbolt/cmd/gbolt/shell"
)

func main() {
	if err := shell.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
