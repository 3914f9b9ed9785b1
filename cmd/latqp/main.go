// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command latqp smooths a lateral offset profile described by a YAML problem file.
//
//	latqp solve problem.yaml --config lateral.yaml --plot out.svg --metrics-out solve.prom
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
