// Package gemini provides a chat-completion client for Google Gemini models via the genai SDK.
//
// The conversation is flattened into a single prompt: an instruction line asking the model
// to answer in the user's language, then one "role: content" line per message.
// StreamChatCompletion yields one chunk per SDK chunk and a final chunk with finish reason
// "stop"; a stream can be iterated only once.
//
// Token counts use the cl100k_base encoding when it can be loaded and fall back to a
// whitespace word count otherwise.
package gemini
