package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation code", Validation("name is required", "name"), KindValidation},
		{"not found code", NotFound("folder not found", "f1"), KindNotFound},
		{"status only 404", New("WHATEVER", "missing", "", http.StatusNotFound), KindNotFound},
		{"status only 422", New("WHATEVER", "bad", "", http.StatusUnprocessableEntity), KindValidation},
		{"server error", New("INTERNAL_ERROR", "boom", "", http.StatusInternalServerError), KindNetwork},
		{"conflict", New("INSUFFICIENT_TOKENS", "balance too low", "", http.StatusConflict), KindConflict},
		{"wrapped", fmt.Errorf("delete folder: %w", NotFound("folder not found", "")), KindNotFound},
		{"plain error", errors.New("dial tcp: refused"), KindNetwork},
		{"context", context.DeadlineExceeded, KindNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, KindOf(tc.err))
		})
	}

	require.Equal(t, Kind(""), KindOf(nil))
}

func TestDisplayMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "folder not found", DisplayMessage(NotFound("folder not found", "f1")))
	require.Equal(t, FallbackMessage, DisplayMessage(errors.New("connection reset")))
	require.Equal(t, FallbackMessage, DisplayMessage(Network(errors.New("dial tcp"))))
	require.Equal(t, FallbackMessage, DisplayMessage(New("INTERNAL_ERROR", "  ", "", 500)))
	require.Empty(t, DisplayMessage(nil))
}

func TestNetworkUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	err := Network(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "NETWORK_ERROR: network request failed (dial tcp 127.0.0.1:1: connect: connection refused)", err.Error())
	require.True(t, IsKind(err, KindNetwork))
}
