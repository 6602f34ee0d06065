package tendermint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

const (
	EventSourceWebsocket = "websocket"
	EventSourcePoll      = "poll"
)

// ChainConfig configures an endpoint of a cometbft chain running ibc-go.
type ChainConfig struct {
	Key                  string  `json:"key"`
	ChainID              string  `json:"chain_id"`
	RPCAddr              string  `json:"rpc_addr"`
	AccountPrefix        string  `json:"account_prefix"`
	KeyringBackend       string  `json:"keyring_backend"`
	GasAdjustment        float64 `json:"gas_adjustment"`
	GasPrices            string  `json:"gas_prices"`
	AverageBlockTimeMsec uint64  `json:"average_block_time_msec"`
	MaxRetryForCommit    uint64  `json:"max_retry_for_commit"`
	Timeout              string  `json:"timeout"`
	// EventSource is "websocket" (default) or "poll"
	EventSource string `json:"event_source,omitempty"`

	// CodeID is the hex checksum of the wasm light client code for this chain
	CodeID          string `json:"code_id"`
	TrustingPeriod  string `json:"trusting_period"`
	UnbondingPeriod string `json:"unbonding_period"`
	MaxClockDrift   string `json:"max_clock_drift"`
	// StorePrefix is the commitment prefix of the IBC store, "ibc" when empty
	StorePrefix string `json:"store_prefix,omitempty"`
}

var _ core.ChainConfig = (*ChainConfig)(nil)

func (c ChainConfig) Build(rt *core.Runtime, homePath string) (core.ChainEndpoint, error) {
	return NewChain(rt, c, homePath)
}

func (c ChainConfig) Validate() error {
	isEmpty := func(s string) bool {
		return strings.TrimSpace(s) == ""
	}
	isDuration := func(attr, s string) error {
		if d, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config attribute %q is invalid: %v", attr, err)
		} else if d <= 0 {
			return fmt.Errorf("config attribute %q must be positive: %v", attr, d)
		}
		return nil
	}

	var errs []error
	switch c.KeyringBackend {
	case keyring.BackendFile:
	case keyring.BackendOS:
	case keyring.BackendKWallet:
	case keyring.BackendPass:
	case keyring.BackendTest:
	case keyring.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("config attribute \"keyring_backend\" is unexpected: %s", c.KeyringBackend))
	}
	if isEmpty(c.Key) {
		errs = append(errs, fmt.Errorf("config attribute \"key\" is empty"))
	}
	if isEmpty(c.ChainID) {
		errs = append(errs, fmt.Errorf("config attribute \"chain_id\" is empty"))
	}
	if isEmpty(c.RPCAddr) {
		errs = append(errs, fmt.Errorf("config attribute \"rpc_addr\" is empty"))
	}
	if isEmpty(c.AccountPrefix) {
		errs = append(errs, fmt.Errorf("config attribute \"account_prefix\" is empty"))
	}
	if c.GasAdjustment <= 0 {
		errs = append(errs, fmt.Errorf("config attribute \"gas_adjustment\" is too small: %v", c.GasAdjustment))
	}
	if _, err := sdk.ParseDecCoins(c.GasPrices); err != nil || isEmpty(c.GasPrices) {
		errs = append(errs, fmt.Errorf("config attribute \"gas_prices\" is invalid: %q", c.GasPrices))
	}
	if c.AverageBlockTimeMsec == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"average_block_time_msec\" is zero"))
	}
	if c.MaxRetryForCommit == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"max_retry_for_commit\" is zero"))
	}
	if c.Timeout != "" {
		if err := isDuration("timeout", c.Timeout); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.EventSource {
	case "", EventSourceWebsocket, EventSourcePoll:
	default:
		errs = append(errs, fmt.Errorf("config attribute \"event_source\" is unexpected: %s", c.EventSource))
	}
	if bz, err := hex.DecodeString(c.CodeID); err != nil || len(bz) == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"code_id\" is not a hex checksum: %q", c.CodeID))
	}
	for attr, v := range map[string]string{
		"trusting_period":  c.TrustingPeriod,
		"unbonding_period": c.UnbondingPeriod,
		"max_clock_drift":  c.MaxClockDrift,
	} {
		if err := isDuration(attr, v); err != nil {
			errs = append(errs, err)
		}
	}
	if errs == nil && c.trustingPeriod() >= c.unbondingPeriod() {
		errs = append(errs, fmt.Errorf("config attribute \"trusting_period\" must be shorter than \"unbonding_period\""))
	}

	// errors.Join returns nil if len(errs) == 0
	return errors.Join(errs...)
}

func mustParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (c ChainConfig) trustingPeriod() time.Duration {
	return mustParseDuration(c.TrustingPeriod)
}

func (c ChainConfig) unbondingPeriod() time.Duration {
	return mustParseDuration(c.UnbondingPeriod)
}

func (c ChainConfig) maxClockDrift() time.Duration {
	return mustParseDuration(c.MaxClockDrift)
}

func (c ChainConfig) storePrefix() string {
	if c.StorePrefix == "" {
		return ibcexported.StoreKey
	}
	return c.StorePrefix
}

func (c ChainConfig) timeout() time.Duration {
	if c.Timeout == "" {
		return 10 * time.Second
	}
	return mustParseDuration(c.Timeout)
}

func (c ChainConfig) averageBlockTime() time.Duration {
	return time.Duration(c.AverageBlockTimeMsec) * time.Millisecond
}

// keysDir returns the path to the keys for this chain
func keysDir(home, chainID string) string {
	return filepath.Join(home, "keys", chainID)
}

func lightDir(home string) string {
	return filepath.Join(home, "light")
}
