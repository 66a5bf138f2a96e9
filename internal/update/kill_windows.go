//go:build windows

package update

import (
	"fmt"
	"os"
	"os/exec"
)

// killByName terminates other processes with the given executable name.
// The current process is excluded so the updater does not kill itself.
func killByName(name string) error {
	cmd := exec.Command("taskkill", "/F", "/IM", name+".exe",
		"/FI", fmt.Sprintf("PID ne %d", os.Getpid()))
	return cmd.Run()
}
