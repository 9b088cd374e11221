// Package model defines the domain types and value objects for the
// tcscope CLI.
//
// This package contains plain data structures with no I/O.
// Container information, prune reports and reap results are transient
// representations reconstructed from Docker API responses at runtime;
// there are no persistent state files.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
