// Package cmd implements the command-line interface for the msgstore
// benchmark tool. It provides a hierarchical command structure around the
// concurrent message store and its workload driver.
//
// The package is organized into several subpackages:
//
//   - bench: Commands for running the messaging benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See msgstore -help for a list of all commands.
package cmd
