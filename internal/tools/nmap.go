package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// NmapRunner shells out to the nmap executable.
type NmapRunner struct {
	binary string
}

// NewNmapRunner creates a runner for the given nmap binary path.
func NewNmapRunner(binary string) *NmapRunner {
	if binary == "" {
		binary = "nmap"
	}
	return &NmapRunner{binary: binary}
}

// Scan runs a version-detection scan against target and returns nmap's raw
// stdout. Execution errors become text like every other capability.
func (n *NmapRunner) Scan(ctx context.Context, target string) string {
	cmd := exec.CommandContext(ctx, n.binary, "-sV", target)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return fmt.Sprintf("nmap scan of %s failed: %s", target, strings.TrimSpace(string(ee.Stderr)))
		}
		return fmt.Sprintf("nmap scan of %s failed: %v", target, err)
	}
	return string(out)
}
