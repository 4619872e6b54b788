// Package git detects whether a directory is inside a git work tree.
package git

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// lookupTimeout bounds the git subprocess.
const lookupTimeout = 5 * time.Second

// Toplevel returns the root of the git work tree containing dir. ok is false
// when dir is not inside a work tree or git is not installed.
func Toplevel(ctx context.Context, dir string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", false
	}

	top := strings.TrimSpace(string(out))
	return top, top != ""
}
