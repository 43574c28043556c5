package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/group-summary-bot/internal/models"
)

// SystemPrompt frames the backend as a chat analyst. Output rules keep
// the response directly postable to the chat.
const SystemPrompt = `You are an assistant that analyzes group chat conversations. Given a chat log, produce a structured summary of the discussion, grouped by topic.

Rules:
1. Output only the summary itself, no preamble or closing remarks
2. For each topic give: a short title, the time range (e.g. 14:30-16:45), the main participants, and a concise recap of what was discussed and concluded
3. Order topics by how actively they were discussed, most active first
4. Adjust the number of topics to the actual conversation, usually 3-8
5. Quote or paraphrase one memorable remark per topic when there is one`

// Limit the rendered log so the prompt stays within token limits.
const maxPromptMessages = 500

// RenderMessages formats a window of messages into the prompt body,
// oldest first, one "[HH:MM] sender: text" line per message. When more
// than maxPromptMessages qualify, the head and tail halves are kept with
// an elision note so both ends of the window stay visible.
func RenderMessages(messages []models.Message, loc *time.Location) string {
	var sb strings.Builder

	toRender := messages
	if len(messages) > maxPromptMessages {
		half := maxPromptMessages / 2
		head := messages[:half]
		tail := messages[len(messages)-half:]
		toRender = make([]models.Message, 0, maxPromptMessages)
		toRender = append(toRender, head...)
		toRender = append(toRender, tail...)
		sb.WriteString(fmt.Sprintf("[showing first %d and last %d of %d messages]\n\n", half, half, len(messages)))
	}

	for _, msg := range toRender {
		if msg.Text == "" {
			continue
		}

		sender := msg.Sender
		if sender == "" {
			sender = "Unknown"
		}

		timestamp := msg.Timestamp.In(loc).Format("15:04")
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, sender, msg.Text))
	}

	return sb.String()
}
