package model

import (
	"strings"

	"lorachat/pkg/types"
)

// ChatML markers used by Qwen chat models.
const (
	ChatMLStart = "<|im_start|>"
	ChatMLEnd   = "<|im_end|>"
	EndOfText   = "<|endoftext|>"
)

// ChatMLSpecials lists the marker strings that tokenize to special tokens.
var ChatMLSpecials = []string{ChatMLStart, ChatMLEnd, EndOfText}

// RenderChatML renders turns in ChatML and appends the assistant generation prompt.
func RenderChatML(turns []types.ChatTurn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(ChatMLStart)
		b.WriteString(string(t.Role))
		b.WriteByte('\n')
		b.WriteString(t.Content)
		b.WriteString(ChatMLEnd)
		b.WriteByte('\n')
	}
	b.WriteString(ChatMLStart)
	b.WriteString(string(types.RoleAssistant))
	b.WriteByte('\n')
	return b.String()
}
