//go:build !linux

package main

// applySeccompFilter is a no-op outside Linux, where seccomp does not exist.
func applySeccompFilter() error {
	return nil
}
