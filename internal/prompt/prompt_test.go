package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lorachat/internal/config"
	"lorachat/internal/model"
	"lorachat/internal/model/modeltest"
	"lorachat/pkg/types"
)

func newAssembler(t *testing.T) *Assembler {
	t.Helper()
	p, err := NewPolicy(config.Default().Prompt.SystemPrompts)
	if err != nil {
		t.Fatal(err)
	}
	return NewAssembler(p, modeltest.New())
}

func TestAssembleInjectsDefaultPersona(t *testing.T) {
	a := newAssembler(t)
	got, err := a.Assemble(context.Background(), []types.ChatTurn{{Role: types.RoleUser, Content: "你好"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	sys := model.ChatMLStart + "system\n"
	if n := strings.Count(got, sys); n != 1 {
		t.Fatalf("expected exactly one system segment, got %d in %q", n, got)
	}
	if !strings.HasPrefix(got, sys+config.DefaultSystemPrompt+model.ChatMLEnd) {
		t.Fatalf("default persona is not the first segment: %q", got)
	}
	if !strings.HasSuffix(got, model.ChatMLStart+"assistant\n") {
		t.Fatalf("generation prompt suffix missing: %q", got)
	}
}

func TestAssembleKeepsCallerSystemTurn(t *testing.T) {
	a := newAssembler(t)
	turns := []types.ChatTurn{
		{Role: types.RoleSystem, Content: "You are terse."},
		{Role: types.RoleUser, Content: "hi"},
	}
	got, err := a.Assemble(context.Background(), turns)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if strings.Contains(got, config.DefaultSystemPrompt) {
		t.Fatalf("default persona injected next to caller system turn: %q", got)
	}
	if n := strings.Count(got, model.ChatMLStart+"system\n"); n != 1 {
		t.Fatalf("expected one system segment, got %d", n)
	}
	if !strings.HasPrefix(got, model.ChatMLStart+"system\nYou are terse."+model.ChatMLEnd) {
		t.Fatalf("caller system turn changed: %q", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	p, _ := NewPolicy([]string{"persona", "alt"})
	in := []types.ChatTurn{{Role: types.RoleUser, Content: "x"}}
	out := p.Apply(in)
	if len(in) != 1 || in[0].Role != types.RoleUser {
		t.Fatalf("input mutated: %+v", in)
	}
	if len(out) != 2 || out[0].Content != "persona" || out[1] != in[0] {
		t.Fatalf("unexpected output: %+v", out)
	}
	if got := p.Candidates(); len(got) != 2 || got[1] != "alt" {
		t.Fatalf("candidates = %v", got)
	}
}

func TestAssembleRejectsEmptyTurns(t *testing.T) {
	a := newAssembler(t)
	if _, err := a.Assemble(context.Background(), nil); !errors.Is(err, ErrEmptyTurns) {
		t.Fatalf("expected ErrEmptyTurns, got %v", err)
	}
}

func TestNewPolicyValidation(t *testing.T) {
	for _, prompts := range [][]string{nil, {}, {"  "}} {
		if _, err := NewPolicy(prompts); err == nil {
			t.Fatalf("expected error for %q", prompts)
		}
	}
}
