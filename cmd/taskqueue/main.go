// Package main implements the taskqueue command, which runs the in-process
// task manager behind a small HTTP API.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
