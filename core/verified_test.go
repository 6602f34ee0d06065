package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

func TestMapVerified(t *testing.T) {
	v := core.Verified[int]{Target: 13, Supporting: []int{11, 12}}
	out, err := core.MapVerified(v, func(h int) (string, error) { return fmt.Sprint(h), nil })
	require.NoError(t, err)
	require.Equal(t, "13", out.Target)
	require.Equal(t, []string{"11", "12"}, out.Supporting)

	empty, err := core.MapVerified(core.Verified[int]{Target: 11}, func(h int) (int, error) { return h, nil })
	require.NoError(t, err)
	require.NotNil(t, empty.Supporting)
	require.Empty(t, empty.Supporting)

	_, err = core.MapVerified(v, func(h int) (int, error) {
		if h == 12 {
			return 0, errors.New("boom")
		}
		return h, nil
	})
	require.Error(t, err)
}

func TestZipVerified(t *testing.T) {
	headers := core.Verified[string]{Target: "h13", Supporting: []string{"h11", "h12"}}
	snaps := core.Verified[int]{Target: 13, Supporting: []int{11, 12}}
	out, err := core.ZipVerified(headers, snaps, func(h string, s int) (string, error) {
		return fmt.Sprintf("%s/%d", h, s), nil
	})
	require.NoError(t, err)
	require.Equal(t, "h13/13", out.Target)
	require.Equal(t, []string{"h11/11", "h12/12"}, out.Supporting)

	_, err = core.ZipVerified(headers, core.Verified[int]{Target: 13}, func(h string, s int) (string, error) { return h, nil })
	require.Error(t, err)
}
