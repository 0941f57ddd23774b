package temporal

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
)

func TestClientOptions_Defaults(t *testing.T) {
	opts, err := ClientOptions(Options{})
	require.NoError(t, err)
	require.Equal(t, client.DefaultHostPort, opts.HostPort)
	require.Equal(t, client.DefaultNamespace, opts.Namespace)
	require.NotNil(t, opts.Logger)
	require.Len(t, opts.Interceptors, 1)
}

func TestClientOptions_Overrides(t *testing.T) {
	opts, err := ClientOptions(Options{Address: "temporal:7233", Namespace: "deals"})
	require.NoError(t, err)
	require.Equal(t, "temporal:7233", opts.HostPort)
	require.Equal(t, "deals", opts.Namespace)
}

func TestDial_Disabled(t *testing.T) {
	_, err := Dial(Options{Disabled: true})
	require.ErrorIs(t, err, ErrDisabled)
}
