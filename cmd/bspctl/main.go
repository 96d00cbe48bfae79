// Command bspctl queries scenes offline: painter's order, tree listings,
// rendered previews and signed tokens for the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
