// Package main is the entry point for the sip-vision capture analyzer.
package main

import (
	"fmt"
	"os"

	"github.com/joseaugustine1/pcap-sip-vision/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
