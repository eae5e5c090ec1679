// Package muikit provides the shared chat-completion contract used by the
// provider adapters in adapter/bedrock and adapter/gemini: messages, results,
// usage bookkeeping, token estimation and static model capabilities.
package muikit
