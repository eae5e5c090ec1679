package muikit

import (
	"fmt"
	"strings"
)

// Role is the message role in a chat (system, user, assistant, tool).
type Role string

// Chat message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPart is a sealed interface for message parts. Only package types implement it via isContentPart().
type ContentPart interface {
	isContentPart()
}

// TextPart holds plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart references an image by URL. Adapters in this module are text-only,
// so images are flattened to a placeholder when content is joined.
type ImagePart struct {
	URL      string
	MIMEType string
}

func (ImagePart) isContentPart() {}

// Message is a single chat message with role and content parts.
// A message with several parts is flattened with JoinContent before it reaches a provider.
type Message struct {
	Role    Role
	Content []ContentPart
}

// NewTextMessage returns a message with a single TextPart.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentPart{TextPart{Text: text}}}
}

// RoleOrDefault returns the message role, or RoleUser when the role is empty.
func (m Message) RoleOrDefault() Role {
	if m.Role == "" {
		return RoleUser
	}
	return m.Role
}

// Text returns the message content joined into one string (see JoinContent).
func (m Message) Text() string {
	return JoinContent(m.Content)
}

// PartString renders a single part as text: TextPart verbatim, ImagePart as "<image URL>".
func PartString(p ContentPart) string {
	switch x := p.(type) {
	case TextPart:
		return x.Text
	case ImagePart:
		return fmt.Sprintf("<image %s>", x.URL)
	default:
		return ""
	}
}

// JoinContent joins rendered parts with a single space. A single part is returned unchanged.
func JoinContent(parts []ContentPart) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return PartString(parts[0])
	}
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = PartString(p)
	}
	return strings.Join(ss, " ")
}
