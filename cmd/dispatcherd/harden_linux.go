//go:build linux

package main

import (
	seccomp "github.com/seccomp/libseccomp-golang"
)

// applySeccompFilter installs a default-allow filter that only denies
// the syscalls a runtime call dispatcher process has no legitimate
// reason to use once it is up and running (new process creation and
// ptrace), narrowing the attack surface a compromised sub-dispatcher
// handler could exploit.
func applySeccompFilter() error {
	filter, err := seccomp.NewFilter(seccomp.ActAllow)
	if err != nil {
		return err
	}
	defer filter.Release()

	deny := []string{"execve", "execveat", "ptrace", "process_vm_readv", "process_vm_writev"}
	for _, name := range deny {
		syscallID, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			// Not every syscall name exists on every kernel/arch combination.
			continue
		}
		if err := filter.AddRule(syscallID, seccomp.ActErrno.SetReturnCode(1)); err != nil {
			return err
		}
	}

	return filter.Load()
}
