package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type captured struct {
	title   string
	message string
}

func newTestDesktop(enabled bool, sendErr error) (*Desktop, *[]captured) {
	var calls []captured
	d := NewDesktop(nil, "murmur", enabled)
	d.send = func(title, message string, _ any) error {
		calls = append(calls, captured{title: title, message: message})
		return sendErr
	}
	return d, &calls
}

func TestDesktopDeliversNotices(t *testing.T) {
	d, calls := newTestDesktop(true, nil)
	ctx := context.Background()

	d.MuteUnavailable(ctx)
	d.SessionFailed(ctx, "capture process exited unexpectedly")
	d.SessionComplete(ctx, "hello world")

	require.Len(t, *calls, 3)
	require.Contains(t, (*calls)[0].title, "murmur")
	require.Contains(t, (*calls)[1].message, "exited unexpectedly")
	require.Equal(t, "hello world", (*calls)[2].message)
}

func TestDesktopDisabledIsSilent(t *testing.T) {
	d, calls := newTestDesktop(false, nil)

	d.SessionComplete(context.Background(), "hello")
	require.Empty(t, *calls)
}

func TestDesktopSwallowsSendFailures(t *testing.T) {
	d, _ := newTestDesktop(true, errors.New("no notification daemon"))

	// Must not panic or propagate.
	d.SessionFailed(context.Background(), "boom")
}

func TestPreviewTruncatesLongTranscripts(t *testing.T) {
	long := strings.Repeat("lorem ipsum ", 40)
	got := preview(long)
	require.True(t, strings.HasSuffix(got, "…"))
	require.Less(t, len([]rune(got)), 125)

	require.Equal(t, "short", preview("  short \n"))
}
