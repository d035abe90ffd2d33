package types

// ModelInfo describes the loaded model handle.
type ModelInfo struct {
	// Backend serving the model (llama-server, remote, llama-cpp).
	// example: llama-server
	Backend string `json:"backend" example:"llama-server"`
	// Base model identifier or path.
	// example: /models/qwen1_5-0_5b-chat-q8_0.gguf
	BaseModel string `json:"base_model" example:"/models/qwen1_5-0_5b-chat-q8_0.gguf"`
	// Adapter overlaid on the base weights.
	// example: ./qwen_lora_result_v1/adapter.gguf
	Adapter string `json:"adapter" example:"./qwen_lora_result_v1/adapter.gguf"`
	// Compute device description.
	// example: gpu(ngl=99)
	Device string `json:"device,omitempty" example:"gpu(ngl=99)"`
	// Numeric precision of the weights.
	// example: f16
	Precision string `json:"precision,omitempty" example:"f16"`
	// Context window in tokens (0 when unknown).
	// example: 2048
	ContextSize int `json:"context_size" example:"2048"`
	// End-of-sequence token id, used as the padding id.
	// example: 151643
	EOSTokenID int32 `json:"eos_token_id" example:"151643"`
}
