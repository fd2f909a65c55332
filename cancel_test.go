package dfir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCancelToken_OnCancelFiresOnceImmediatelyIfAlreadyCancelled(t *testing.T) {
	token := NewCancelToken()
	reason := errors.New("boom")
	token.Cancel(reason)

	calls := 0
	token.OnCancel(func(r error) {
		calls++
		require.Equal(t, reason, r)
	})
	require.Equal(t, 1, calls)

	// A second Cancel call must not re-invoke handlers or change the reason.
	token.Cancel(errors.New("different"))
	require.Equal(t, reason, token.Reason())
}

func TestCancelToken_OnCancelFiresWhenCancelHappensLater(t *testing.T) {
	token := NewCancelToken()
	fired := false
	token.OnCancel(func(error) { fired = true })

	require.False(t, token.Cancelled())
	token.Cancel(nil)
	require.True(t, token.Cancelled())
	require.True(t, fired)
	require.Equal(t, ErrDriverCancelled, token.Reason())
}
