// Command dimstore manages the dimension store: schema migration, sequence
// inspection, ad-hoc reads and the Lambda entry points of the bus consumer.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
