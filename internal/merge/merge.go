// Package merge folds a LoRA adapter into its base weights offline by running
// llama.cpp's llama-export-lora tool.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/common/fsutil"
)

// Options describe one merge run.
type Options struct {
	Bin     string
	Base    string
	Adapter string
	Out     string
	// Scale multiplies the adapter delta; 0 or 1 merges it unscaled.
	Scale   float64
	Threads int
	// Force overwrites an existing output file.
	Force bool
	// Stdout receives the tool's progress output; nil discards it.
	Stdout io.Writer
}

// Result reports what was written.
type Result struct {
	Out      string
	Bytes    int64
	Duration time.Duration
}

var (
	ErrOutputExists = errors.New("output file already exists")
	ErrNoOutput     = errors.New("merge tool exited without writing the output file")
)

func (o Options) validate() error {
	if strings.TrimSpace(o.Base) == "" || strings.TrimSpace(o.Adapter) == "" || strings.TrimSpace(o.Out) == "" {
		return fmt.Errorf("base, adapter and out are required")
	}
	if o.Scale < 0 {
		return fmt.Errorf("scale must be >= 0, got %v", o.Scale)
	}
	if o.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", o.Threads)
	}
	return nil
}

// Args builds the llama-export-lora command line.
func Args(base, adapter, out string, scale float64, threads int) []string {
	args := []string{"-m", base}
	if scale == 0 || scale == 1 {
		args = append(args, "--lora", adapter)
	} else {
		args = append(args, "--lora-scaled", adapter, strconv.FormatFloat(scale, 'f', -1, 64))
	}
	args = append(args, "-o", out)
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	return args
}

// Run merges o.Adapter into o.Base and writes o.Out. The tool runs inside the
// output directory and writes a temporary file there that is renamed once
// complete.
func Run(ctx context.Context, o Options, log zerolog.Logger) (Result, error) {
	if err := o.validate(); err != nil {
		return Result{}, err
	}
	bin := o.Bin
	if bin == "" {
		bin = "llama-export-lora"
	}
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return Result{}, fmt.Errorf("merge tool %q not found: %w", bin, err)
	}
	base, err := fsutil.Resolve(o.Base)
	if err != nil {
		return Result{}, fmt.Errorf("resolve base: %w", err)
	}
	adapter, err := fsutil.Resolve(o.Adapter)
	if err != nil {
		return Result{}, fmt.Errorf("resolve adapter: %w", err)
	}
	out, err := fsutil.Resolve(o.Out)
	if err != nil {
		return Result{}, fmt.Errorf("resolve out: %w", err)
	}
	if !fsutil.IsRegularFile(base) {
		return Result{}, fmt.Errorf("base model %s is not a file", base)
	}
	if !fsutil.IsRegularFile(adapter) {
		return Result{}, fmt.Errorf("adapter %s is not a file (convert a PEFT directory with convert_lora_to_gguf.py first)", adapter)
	}
	if fsutil.PathExists(out) && !o.Force {
		return Result{}, fmt.Errorf("%s: %w", out, ErrOutputExists)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	tmp := out + ".partial"
	_ = os.Remove(tmp)
	args := Args(base, adapter, tmp, o.Scale, o.Threads)
	log.Info().Str("bin", binPath).Strs("args", args).Msg("merge start")
	start := time.Now()

	var stderr bytes.Buffer
	stdout := o.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	if err := runCmd(ctx, cmd{Path: binPath, Args: args, Dir: filepath.Dir(out), Stdout: stdout, Stderr: &stderr}); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("%s failed: %w: %s", filepath.Base(binPath), err, strings.TrimSpace(tail(stderr.String(), 2048)))
	}
	fi, err := os.Stat(tmp)
	if err != nil || fi.Size() == 0 {
		_ = os.Remove(tmp)
		return Result{}, ErrNoOutput
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("move merged model into place: %w", err)
	}
	res := Result{Out: out, Bytes: fi.Size(), Duration: time.Since(start)}
	log.Info().Str("out", out).Int64("bytes", res.Bytes).Dur("dur", res.Duration).Msg("merge done")
	return res, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
