//go:build windows

package shell

import "os/exec"

// isolateProcessGroup is a no-op on Windows; CommandContext's default kill
// plus WaitDelay bounds the wait.
func isolateProcessGroup(cmd *exec.Cmd) {}
