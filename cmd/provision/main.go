package main

import "github.com/rzbill/provision/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
