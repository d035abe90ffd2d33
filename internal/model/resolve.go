package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"lorachat/internal/common/fsutil"
)

// ListGGUF scans dir for *.gguf files and returns their absolute paths, sorted.
func ListGGUF(dir string) ([]string, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	if abs == "" {
		return nil, fmt.Errorf("directory is empty")
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		out = append(out, filepath.Join(abs, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// normalizeName lowercases s and drops everything but letters and digits, so
// "Qwen1.5-0.5B-Chat" and "qwen1_5-0_5b-chat" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveBaseModel turns the configured base model into a GGUF file path.
// An existing file or a name ending in .gguf is taken as a path. Anything else
// is a name (an optional "org/" prefix is dropped) matched against the stems of
// the *.gguf files in modelsDir: an exact normalized match wins, otherwise a
// single file whose stem starts with the name.
func ResolveBaseModel(name, modelsDir string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("base model is empty")
	}
	if strings.HasSuffix(strings.ToLower(name), ".gguf") || fsutil.IsRegularFile(name) {
		p, err := fsutil.Resolve(name)
		if err != nil {
			return "", err
		}
		if !fsutil.IsRegularFile(p) {
			return "", fmt.Errorf("base model file not found: %s", p)
		}
		return p, nil
	}
	want := normalizeName(name[strings.LastIndex(name, "/")+1:])
	if want == "" {
		return "", fmt.Errorf("base model name %q has no letters or digits", name)
	}
	files, err := ListGGUF(modelsDir)
	if err != nil {
		return "", fmt.Errorf("resolve base model %q in %s: %w", name, modelsDir, err)
	}
	var prefix []string
	for _, f := range files {
		stem := normalizeName(strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)))
		if stem == want {
			return f, nil
		}
		if strings.HasPrefix(stem, want) {
			prefix = append(prefix, f)
		}
	}
	switch len(prefix) {
	case 0:
		return "", fmt.Errorf("base model %q not found in %s", name, modelsDir)
	case 1:
		return prefix[0], nil
	default:
		names := make([]string, len(prefix))
		for i, p := range prefix {
			names[i] = filepath.Base(p)
		}
		return "", fmt.Errorf("base model %q is ambiguous in %s: %s", name, modelsDir, strings.Join(names, ", "))
	}
}

// ResolveAdapter turns the configured adapter into a GGUF file path. A
// directory (such as a training output folder) must hold exactly one *.gguf
// file, or several of which exactly one has "adapter" in its name.
func ResolveAdapter(path string) (string, error) {
	p, err := fsutil.Resolve(path)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("adapter path is empty")
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("adapter not found: %w", err)
	}
	if !fi.IsDir() {
		return p, nil
	}
	files, err := ListGGUF(p)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("adapter directory %s holds no .gguf file; convert the adapter with llama.cpp's convert_lora_to_gguf.py", p)
	case 1:
		return files[0], nil
	}
	var named []string
	for _, f := range files {
		if strings.Contains(strings.ToLower(filepath.Base(f)), "adapter") {
			named = append(named, f)
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}
	return "", fmt.Errorf("adapter directory %s holds %d .gguf files; point adapter_path at one", p, len(files))
}
