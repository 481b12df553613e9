// The main package for the docsite executable.
package main

import (
	"github.com/JakeFAU/docsite/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
