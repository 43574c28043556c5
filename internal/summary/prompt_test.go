package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRenderMessagesFormat(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	messages := []models.Message{
		{Sender: "alice", Text: "good morning", Timestamp: time.Date(2024, 3, 10, 6, 5, 0, 0, time.UTC)},
		{Sender: "bob", Text: "hey", Timestamp: time.Date(2024, 3, 10, 6, 7, 0, 0, time.UTC)},
	}

	rendered := RenderMessages(messages, loc)
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "[09:05] alice: good morning", lines[0])
	require.Equal(t, "[09:07] bob: hey", lines[1])
}

func TestRenderMessagesSkipsEmptyText(t *testing.T) {
	messages := []models.Message{
		{Sender: "alice", Text: "", Timestamp: time.Date(2024, 3, 10, 6, 5, 0, 0, time.UTC)},
		{Sender: "bob", Text: "hey", Timestamp: time.Date(2024, 3, 10, 6, 7, 0, 0, time.UTC)},
	}

	rendered := RenderMessages(messages, time.UTC)
	require.Equal(t, "[06:07] bob: hey\n", rendered)
}

func TestRenderMessagesBoundsPromptSize(t *testing.T) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	messages := make([]models.Message, 0, 600)
	for i := 0; i < 600; i++ {
		messages = append(messages, models.Message{
			Sender:    "alice",
			Text:      "msg",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	rendered := RenderMessages(messages, time.UTC)
	require.Contains(t, rendered, "[showing first 250 and last 250 of 600 messages]")
	// Header line plus a blank line plus 500 message lines.
	require.Equal(t, 502, len(strings.Split(strings.TrimRight(rendered, "\n"), "\n")))
}
