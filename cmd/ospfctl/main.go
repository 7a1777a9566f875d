// Command ospfctl is the operator CLI for querying a running ospfd daemon
// over its read-only admin API.
package main

import "github.com/go-ospfd/ospfd/cmd/ospfctl/commands"

func main() {
	commands.Execute()
}
