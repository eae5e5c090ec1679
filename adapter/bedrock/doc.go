// Package bedrock provides a chat-completion client for Anthropic Claude models served by
// the AWS Bedrock Runtime InvokeModel API.
//
// Requests use the Bedrock Anthropic envelope (anthropic_version "bedrock-2023-05-31").
// Roles are sent as given (an empty role becomes "user"); multi-part content is joined
// with single spaces. The response must carry content[0].text; anything else is reported
// as muikit.ErrMalformedResponse. Streaming through CreateChatCompletion is not supported.
//
// Token usage is estimated from text length (4 characters per token). It is approximate
// and not suitable for billing.
package bedrock
