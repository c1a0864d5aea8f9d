//go:build windows

package converter

import "os/exec"

// isolateProcessGroup relies on the default kill and WaitDelay on Windows.
func isolateProcessGroup(_ *exec.Cmd) {}
