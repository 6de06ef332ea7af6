// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad
//
// ld2450 - HLK-LD2450 mmWave radar tool
//
// A CLI for tracking, recording and configuring HLK-LD2450 modules over a
// serial port or a WebSocket serial bridge.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/ld2450/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
