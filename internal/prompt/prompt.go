// Package prompt turns caller chat turns into the single formatted prompt
// string the generation engine consumes.
package prompt

import (
	"context"
	"errors"
	"strings"

	"lorachat/pkg/types"
)

// ErrEmptyTurns is returned when there is nothing to assemble.
var ErrEmptyTurns = errors.New("messages must contain at least one turn")

// Templater renders turns with the model's chat template and the
// generation-prompt suffix. *model.Handle satisfies it.
type Templater interface {
	ApplyChatTemplate(ctx context.Context, turns []types.ChatTurn) (string, error)
}

// Policy holds the candidate personas; the first one is injected when a
// conversation carries no system turn.
type Policy struct {
	prompts []string
}

// NewPolicy returns a Policy over prompts. At least one non-blank prompt is required.
func NewPolicy(prompts []string) (Policy, error) {
	if len(prompts) == 0 || strings.TrimSpace(prompts[0]) == "" {
		return Policy{}, errors.New("system prompt policy needs a non-empty first persona")
	}
	return Policy{prompts: append([]string(nil), prompts...)}, nil
}

// Default returns the persona applied to conversations without a system turn.
func (p Policy) Default() string {
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[0]
}

// Candidates returns a copy of all configured personas.
func (p Policy) Candidates() []string {
	return append([]string(nil), p.prompts...)
}

// Apply returns turns with the default persona prepended when no turn has the
// system role. Turns that already carry one are returned unchanged.
func (p Policy) Apply(turns []types.ChatTurn) []types.ChatTurn {
	for _, t := range turns {
		if t.Role == types.RoleSystem {
			return turns
		}
	}
	out := make([]types.ChatTurn, 0, len(turns)+1)
	out = append(out, types.ChatTurn{Role: types.RoleSystem, Content: p.Default()})
	return append(out, turns...)
}

// Assembler applies the persona policy and renders the result through a Templater.
type Assembler struct {
	policy    Policy
	templater Templater
}

func NewAssembler(policy Policy, t Templater) *Assembler {
	return &Assembler{policy: policy, templater: t}
}

// Assemble returns the formatted, untokenized prompt for turns. Nothing is truncated.
func (a *Assembler) Assemble(ctx context.Context, turns []types.ChatTurn) (string, error) {
	if len(turns) == 0 {
		return "", ErrEmptyTurns
	}
	return a.templater.ApplyChatTemplate(ctx, a.policy.Apply(turns))
}
