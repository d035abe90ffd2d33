package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lorachat/internal/generate"
	"lorachat/internal/model"
	"lorachat/internal/prompt"
	"lorachat/pkg/types"
)

// State is a step of the request lifecycle.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateAssembled
	StateGenerated
	StateResponded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateAssembled:
		return "assembled"
	case StateGenerated:
		return "generated"
	case StateResponded:
		return "responded"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Handler serves chat requests against the process-wide model handle.
type Handler struct {
	handle      *model.Handle
	unavailable error
	loadErr     string
	policy      prompt.Policy
	assembler   *prompt.Assembler
	engine      *generate.Engine
	adm         *admission
	defaults    Defaults
	log         zerolog.Logger
	started     time.Time
	generations atomic.Uint64
}

// New builds a Handler. h is nil when loading failed, in which case loadErr
// describes why and every request fails with ModelUnavailable.
func New(h *model.Handle, loadErr error, cfg Config, log zerolog.Logger) (*Handler, error) {
	policy, err := prompt.NewPolicy(cfg.SystemPrompts)
	if err != nil {
		return nil, err
	}
	hd := &Handler{
		handle:   h,
		policy:   policy,
		adm:      newAdmission(cfg.MaxQueueDepth, cfg.MaxQueueWait),
		defaults: cfg.Defaults,
		log:      log.With().Str("component", "chat").Logger(),
		started:  time.Now(),
	}
	if h == nil {
		if loadErr == nil {
			loadErr = errors.New("no model handle")
		}
		hd.loadErr = loadErr.Error()
		hd.unavailable = ErrModelUnavailable("model unavailable: loading failed at startup")
		return hd, nil
	}
	hd.assembler = prompt.NewAssembler(policy, h)
	hd.engine = generate.New(h, generate.Options{
		CacheTTL:      cfg.EncodeCacheTTL,
		CacheCapacity: cfg.EncodeCacheCapacity,
		Logger:        log,
	})
	return hd, nil
}

// Close releases engine resources. The model handle is closed by its owner.
func (h *Handler) Close() {
	if h.engine != nil {
		h.engine.Close()
	}
}

// Ready reports whether the model loaded.
func (h *Handler) Ready() bool { return h.handle != nil }

// requestLogger prefers the request-scoped logger carried by ctx.
func (h *Handler) requestLogger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "chat").Logger()
	}
	return h.log
}

// Handle runs one chat request to completion. Errors implement
// StatusCode(); a context error means the caller left while queued.
func (h *Handler) Handle(ctx context.Context, req types.ChatRequest) (resp types.ChatResponse, err error) {
	log := h.requestLogger(ctx)
	start := time.Now()
	state := StateReceived
	advance := func(s State) {
		state = s
		log.Debug().Str("state", s.String()).Msg("chat transition")
	}
	advance(StateReceived)
	defer func() {
		outcome := outcomeOf(err)
		requestsTotal.WithLabelValues(outcome).Inc()
		if err != nil {
			failed := state
			advance(StateErrored)
			log.Info().Str("outcome", outcome).Str("failed_at", failed.String()).Dur("dur", time.Since(start)).Err(err).Msg("chat done")
			return
		}
		log.Info().Str("outcome", outcome).Dur("dur", time.Since(start)).Msg("chat done")
	}()

	params, err := h.validate(req)
	if err != nil {
		return types.ChatResponse{}, err
	}
	if h.handle == nil {
		return types.ChatResponse{}, h.unavailable
	}
	advance(StateValidated)
	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("max_new_tokens", params.MaxNewTokens).
		Str("mode", params.Mode.String()).
		Msg("chat request")

	release, err := h.adm.acquire(ctx)
	if err != nil {
		return types.ChatResponse{}, err
	}
	defer release()

	// From here on the work finishes even if the client disconnects.
	gctx := context.WithoutCancel(ctx)
	text, err := h.run(gctx, req.Messages, params, &log, advance)
	if err != nil {
		return types.ChatResponse{}, err
	}
	h.generations.Add(1)
	advance(StateResponded)
	return types.ChatResponse{Response: text}, nil
}

// run assembles and generates, converting panics into generation errors.
func (h *Handler) run(ctx context.Context, turns []types.ChatTurn, params generate.Params, log *zerolog.Logger, advance func(State)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("chat generation panicked")
			err = ErrGeneration("internal error", fmt.Errorf("panic: %v", r))
		}
	}()

	formatted, err := h.assembler.Assemble(ctx, turns)
	if err != nil {
		if errors.Is(err, prompt.ErrEmptyTurns) {
			return "", ErrValidation("%s", err.Error())
		}
		return "", ErrGeneration("template", err)
	}
	advance(StateAssembled)
	log.Debug().Int("template_len", len(formatted)).Msg("prompt assembled")

	res, err := h.engine.Generate(ctx, formatted, params)
	if err != nil {
		var oe *generate.OverflowError
		if errors.As(err, &oe) {
			return "", ErrValidation("%s", oe.Error())
		}
		stage := "generate"
		var ge *generate.Error
		if errors.As(err, &ge) {
			stage = ge.Stage
		}
		log.Error().Err(err).Str("stage", stage).Msg("generation failed")
		return "", ErrGeneration(stage, err)
	}
	advance(StateGenerated)
	log.Debug().
		Int("input_tokens", res.PromptTokens).
		Int("new_tokens", res.CompletionTokens).
		Str("output", res.Text).
		Msg("generation output")
	return res.Text, nil
}

// validate applies defaults and rejects impossible values.
func (h *Handler) validate(req types.ChatRequest) (generate.Params, error) {
	if len(req.Messages) == 0 {
		return generate.Params{}, ErrValidation("messages must contain at least one turn")
	}
	for i, t := range req.Messages {
		if !t.Role.Valid() {
			return generate.Params{}, ErrValidation("messages[%d].role %q must be one of system, user, assistant", i, t.Role)
		}
	}
	maxNew := h.defaults.MaxNewTokens
	if req.MaxNewTokens != nil {
		maxNew = *req.MaxNewTokens
	}
	if maxNew <= 0 {
		return generate.Params{}, ErrValidation("max_new_tokens must be > 0, got %d", maxNew)
	}
	temp := h.defaults.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	if math.IsNaN(temp) || temp < 0 {
		return generate.Params{}, ErrValidation("temperature must be >= 0, got %v", temp)
	}
	topP := h.defaults.TopP
	if req.TopP != nil {
		topP = *req.TopP
	}
	if math.IsNaN(topP) || topP <= 0 || topP > 1 {
		return generate.Params{}, ErrValidation("top_p must be in (0,1], got %v", topP)
	}
	return generate.Params{MaxNewTokens: maxNew, Mode: generate.ModeFor(temp, topP)}, nil
}

// Status reports load state, admission counters and uptime.
func (h *Handler) Status() types.StatusResponse {
	now := time.Now()
	resp := types.StatusResponse{
		State:            "unavailable",
		LoadError:        h.loadErr,
		QueueLen:         h.adm.queueLen(),
		Inflight:         h.adm.running(),
		MaxQueueDepth:    h.adm.depth(),
		UptimeSeconds:    int64(now.Sub(h.started).Seconds()),
		ServerTimeUnix:   now.Unix(),
		GenerationsTotal: h.generations.Load(),
		SystemPrompts:    h.policy.Candidates(),
	}
	if h.handle != nil {
		info := h.handle.Info()
		resp.State = "ready"
		resp.Model = &info
	}
	return resp
}
