// Package model owns the lifecycle of the base model, its LoRA adapter overlay
// and the tokenizer. Load is called once at startup and yields an immutable
// Handle that exposes the capabilities the serving core needs:
//
//   - ApplyChatTemplate: role-tagged turns to prompt text, with the
//     generation-prompt suffix appended.
//   - Encode / Decode: text to token ids and back.
//   - Generate: bounded decoding that returns the echoed input followed by
//     the new tokens.
//
// Backends:
//
//   - llama-server (default): spawns llama.cpp's llama-server with
//     `-m <base> --lora <adapter>` and speaks its HTTP protocol.
//   - remote: the same protocol against an already running server.
//   - llama-cpp: in-process go-llama.cpp. Enabled with `-tags=llama`;
//     without the tag the backend fails to load with a dependency error.
package model
