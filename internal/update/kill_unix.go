//go:build !windows

package update

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// killByName terminates other processes with the given executable name.
// The current process is excluded so the updater does not kill itself.
func killByName(name string) error {
	out, err := exec.Command("pgrep", "-x", name).Output()
	if err != nil {
		return fmt.Errorf("no %s processes found", name)
	}

	self := os.Getpid()
	killed := false
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid == self {
			continue
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if proc.Signal(syscall.SIGKILL) == nil {
			killed = true
		}
	}
	if !killed {
		return fmt.Errorf("no other %s processes terminated", name)
	}
	return nil
}
