package merge

import (
	"context"
	"io"
	"os/exec"
)

// cmd is one external command invocation.
type cmd struct {
	Path   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

func runCmd(ctx context.Context, c cmd) error {
	x := exec.CommandContext(ctx, c.Path, c.Args...)
	x.Dir = c.Dir
	x.Stdout = c.Stdout
	x.Stderr = c.Stderr
	return x.Run()
}
