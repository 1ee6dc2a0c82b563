// Package main is the entry point for the webreel executable.
package main

import "github.com/webreel/webreel/cmd"

func main() {
	cmd.Execute()
}
