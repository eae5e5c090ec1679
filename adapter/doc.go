// Package adapter holds the pieces shared by the provider adapters: per-call overrides
// read from extra-args maps, the JSON-output system message, tool rejection and the
// tracing helpers wrapped around vendor calls. Implementations live in provider-specific
// subpackages (bedrock, gemini).
package adapter
