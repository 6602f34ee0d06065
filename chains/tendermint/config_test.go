package tendermint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainConfigValidate(t *testing.T) {
	require.NoError(t, testConfig("ibc-0").Validate())

	cases := map[string]struct {
		mutate func(*ChainConfig)
		attr   string
	}{
		"keyring backend":   {func(c *ChainConfig) { c.KeyringBackend = "vault" }, "keyring_backend"},
		"empty key":         {func(c *ChainConfig) { c.Key = " " }, "\"key\""},
		"gas prices":        {func(c *ChainConfig) { c.GasPrices = "cheap" }, "gas_prices"},
		"code id":           {func(c *ChainConfig) { c.CodeID = "xyz" }, "code_id"},
		"event source":      {func(c *ChainConfig) { c.EventSource = "grpc" }, "event_source"},
		"negative drift":    {func(c *ChainConfig) { c.MaxClockDrift = "-1s" }, "max_clock_drift"},
		"trusting too long": {func(c *ChainConfig) { c.TrustingPeriod = "600h" }, "trusting_period"},
		"timeout":           {func(c *ChainConfig) { c.Timeout = "later" }, "timeout"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := testConfig("ibc-0")
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.attr)
		})
	}
}
