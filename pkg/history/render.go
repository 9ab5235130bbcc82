package history

import (
	"fmt"
	"strings"

	"github.com/andrew/mindful-chat/pkg/models"
)

// renderText produces the plain-text projection: one "ROLE: content"
// line per message, with attachments flattened into [Image: url]
// markers. Not reloadable.
func renderText(conv models.Conversation) string {
	var b strings.Builder
	if conv.Instruction != "" {
		fmt.Fprintf(&b, "SYSTEM: %s\n", conv.Instruction)
	}
	for _, msg := range conv.Messages {
		parts := make([]string, 0, 1+len(msg.Attachments))
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
		for _, att := range msg.Attachments {
			parts = append(parts, fmt.Sprintf("[Image: %s]", attachmentRef(att)))
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(msg.Role)), strings.Join(parts, " "))
	}
	return b.String()
}

// renderMarkdown produces the markdown projection with one section per
// message and inline image embeds. Not reloadable.
func renderMarkdown(conv models.Conversation) string {
	var b strings.Builder
	b.WriteString("# Chat History\n\n")
	if conv.Instruction != "" {
		fmt.Fprintf(&b, "### System\n%s\n\n", conv.Instruction)
	}
	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "### %s\n", titleRole(msg.Role))
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, "\n![Image](%s)\n", attachmentRef(att))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func attachmentRef(att models.Attachment) string {
	if att.URL != "" {
		return att.URL
	}
	return att.SourcePath
}

func titleRole(role models.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
