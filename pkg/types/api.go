package types

// ChatRequest is the payload of POST /api/chat.
// Numeric fields are pointers so an explicit zero is distinguishable from an omitted field.
type ChatRequest struct {
	// Model name supplied by the caller. Accepted for compatibility; the service runs a single model.
	// example: qwen-lora
	Model string `json:"model,omitempty" example:"qwen-lora"`
	// Conversation history, oldest first. At least one turn is required.
	Messages []ChatTurn `json:"messages"`
	// Upper bound on newly generated tokens (default 128).
	// example: 128
	MaxNewTokens *int `json:"max_new_tokens,omitempty" example:"128"`
	// Sampling temperature; 0 selects greedy decoding (default 0.7).
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability in (0,1] (default 0.9).
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	// Generated reply without the prompt echo or special tokens.
	// example: 你好呀，我是洛天依~
	Response string `json:"response" example:"你好呀，我是洛天依~"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// RootResponse is the static acknowledgement served at GET /.
type RootResponse struct {
	// example: lorachat API server is running
	Message string `json:"message" example:"lorachat API server is running"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Model load state: ready or unavailable.
	// example: ready
	State string `json:"state" example:"ready"`
	// Loaded model description; absent when loading failed.
	Model *ModelInfo `json:"model,omitempty"`
	// Load error kept since startup, if any.
	LoadError string `json:"load_error,omitempty"`
	// Requests waiting for the generation slot (including the running one).
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Generations currently running (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Completed generations since startup.
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// Configured persona candidates; the first is injected when a request has no system turn.
	SystemPrompts []string `json:"system_prompts"`
}
