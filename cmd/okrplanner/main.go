package main

import (
	"fmt"
	"os"
)

const appName = "okrplanner"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
