package bot

import (
	"testing"

	"github.com/group-summary-bot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryArgsDefaults(t *testing.T) {
	count, hours, err := parseSummaryArgs("", 100, 24)
	require.NoError(t, err)
	require.Equal(t, 100, count)
	require.Equal(t, float64(24), hours)
}

func TestParseSummaryArgsCountOnly(t *testing.T) {
	count, hours, err := parseSummaryArgs("50", 100, 24)
	require.NoError(t, err)
	require.Equal(t, 50, count)
	require.Equal(t, float64(24), hours)
}

func TestParseSummaryArgsCountAndHours(t *testing.T) {
	count, hours, err := parseSummaryArgs("50 6.5", 100, 24)
	require.NoError(t, err)
	require.Equal(t, 50, count)
	require.Equal(t, 6.5, hours)
}

func TestParseSummaryArgsInvalid(t *testing.T) {
	var validationErr *models.ValidationError

	cases := []string{
		"abc",
		"-5",
		"0",
		"50 abc",
		"50 -1",
		"50 0",
		"1 2 3",
	}
	for _, args := range cases {
		_, _, err := parseSummaryArgs(args, 100, 24)
		require.ErrorAs(t, err, &validationErr, "args: %q", args)
	}
}

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello", 4000)
	require.Equal(t, []string{"hello"}, chunks)
}

func TestSplitMessageLong(t *testing.T) {
	text := ""
	for i := 0; i < 950; i++ {
		text += "0123456789"
	}

	chunks := splitMessage(text, 4000)
	require.Len(t, chunks, 3)
	require.Len(t, []rune(chunks[0]), 4000)
	require.Len(t, []rune(chunks[1]), 4000)
	require.Len(t, []rune(chunks[2]), 1500)
}
