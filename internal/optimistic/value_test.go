package optimistic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpeculateThenConfirm(t *testing.T) {
	v := New[int64](500)

	v.Speculate(300)
	require.Equal(t, int64(300), v.Get())
	require.Equal(t, Pending, v.State())

	v.Confirm(280)
	require.Equal(t, int64(280), v.Get())
	require.Equal(t, Confirmed, v.State())
}

func TestFailRestoresConfirmedValue(t *testing.T) {
	v := New[int64](500)

	v.Speculate(400)
	v.Speculate(350)
	v.Fail()

	require.Equal(t, int64(500), v.Get())
	require.Equal(t, Failed, v.State())
	require.Equal(t, "failed", v.State().String())
}

func TestFailWithoutPendingKeepsValue(t *testing.T) {
	v := New("a")
	v.Fail()
	require.Equal(t, "a", v.Get())
}
