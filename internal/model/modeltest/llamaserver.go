package modeltest

import (
	"context"
	"encoding/json"
	"net/http"

	"lorachat/internal/model"
	"lorachat/pkg/types"
)

// NewLlamaServer serves the subset of the llama-server HTTP API that the
// model package uses, backed by b.
func NewLlamaServer(b *Backend) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /props", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"bos_token": "",
			"eos_token": model.ChatMLEnd,
			"default_generation_settings": map[string]any{
				"n_ctx": b.CtxSize,
			},
		})
	})
	mux.HandleFunc("POST /tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		ids, _ := b.Encode(r.Context(), req.Content)
		writeJSON(w, map[string]any{"tokens": nonNil(ids)})
	})
	mux.HandleFunc("POST /detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []model.Token `json:"tokens"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		text, err := b.Decode(r.Context(), req.Tokens, false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]string{"content": text})
	})
	mux.HandleFunc("POST /apply-template", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []types.ChatTurn `json:"messages"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		prompt, _ := b.ApplyChatTemplate(r.Context(), req.Messages)
		writeJSON(w, map[string]string{"prompt": prompt})
	})
	mux.HandleFunc("POST /completion", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt      []model.Token `json:"prompt"`
			NPredict    int           `json:"n_predict"`
			Temperature float32       `json:"temperature"`
			TopP        float32       `json:"top_p"`
			TopK        int           `json:"top_k"`
			Seed        int           `json:"seed"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		opts := model.GenerateOptions{
			MaxNewTokens: req.NPredict,
			DoSample:     req.Temperature > 0 && req.TopK != 1,
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			PadTokenID:   b.EOS(),
			Seed:         req.Seed,
		}
		out, err := b.Generate(context.WithoutCancel(r.Context()), req.Prompt, opts)
		if err != nil || len(out) < len(req.Prompt) {
			http.Error(w, "generation failed", http.StatusInternalServerError)
			return
		}
		gen := out[len(req.Prompt):]
		text, _ := b.Decode(r.Context(), gen, true)
		writeJSON(w, map[string]any{
			"content":          text,
			"tokens":           nonNil(gen),
			"tokens_predicted": len(gen),
			"stop_type":        "eos",
		})
	})
	return mux
}

func nonNil(ids []model.Token) []model.Token {
	if ids == nil {
		return []model.Token{}
	}
	return ids
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
