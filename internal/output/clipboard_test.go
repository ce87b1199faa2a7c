package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitWritesClipboard(t *testing.T) {
	var got string
	committer := NewCommitter(nil, true)
	committer.write = func(text string) error {
		got = text
		return nil
	}

	require.NoError(t, committer.Commit(context.Background(), "captured transcript"))
	require.Equal(t, "captured transcript", got)
}

func TestCommitSkipsEmptyTranscript(t *testing.T) {
	committer := NewCommitter(nil, true)
	committer.write = func(string) error {
		t.Fatal("clipboard write must not run for empty transcripts")
		return nil
	}

	require.NoError(t, committer.Commit(context.Background(), ""))
}

func TestCommitDisabledIsNoop(t *testing.T) {
	committer := NewCommitter(nil, false)
	committer.write = func(string) error {
		t.Fatal("clipboard write must not run when disabled")
		return nil
	}

	require.NoError(t, committer.Commit(context.Background(), "text"))
}

func TestCommitSurfacesWriteFailure(t *testing.T) {
	committer := NewCommitter(nil, true)
	committer.write = func(string) error {
		return errors.New("no clipboard provider")
	}

	err := committer.Commit(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}
