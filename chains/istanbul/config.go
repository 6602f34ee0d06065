package istanbul

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

const (
	EventSourceSubscription = "subscription"
	EventSourcePoll         = "poll"
)

// ChainConfig configures an endpoint of an EVM chain running Istanbul BFT
// with an IBC host contract deployed.
type ChainConfig struct {
	ChainID        string `json:"chain_id"`
	EthChainID     uint64 `json:"eth_chain_id"`
	Revision       uint64 `json:"revision"`
	RPCAddr        string `json:"rpc_addr"`
	IBCHostAddress string `json:"ibc_host_address"`

	// Key is the hex address of the relayer account in the keystore
	Key                string `json:"key"`
	KeystorePassphrase string `json:"keystore_passphrase"`

	// Epoch is the number of blocks between validator set changes
	Epoch                uint64 `json:"epoch"`
	GasLimit             uint64 `json:"gas_limit"`
	AverageBlockTimeMsec uint64 `json:"average_block_time_msec"`
	MaxRetryForCommit    uint64 `json:"max_retry_for_commit"`
	Timeout              string `json:"timeout,omitempty"`
	// EventSource is "subscription" (default) or "poll"
	EventSource string `json:"event_source,omitempty"`

	// CodeID is the hex checksum of the wasm light client code for this chain
	CodeID string `json:"code_id"`
	// StorePrefix is the commitment prefix of the host contract, "ibc" when empty
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

	var errs []error
	if isEmpty(c.ChainID) {
		errs = append(errs, fmt.Errorf("config attribute \"chain_id\" is empty"))
	}
	if c.EthChainID == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"eth_chain_id\" is zero"))
	}
	if isEmpty(c.RPCAddr) {
		errs = append(errs, fmt.Errorf("config attribute \"rpc_addr\" is empty"))
	}
	if !common.IsHexAddress(c.IBCHostAddress) {
		errs = append(errs, fmt.Errorf("config attribute \"ibc_host_address\" is not an address: %q", c.IBCHostAddress))
	}
	if !common.IsHexAddress(c.Key) {
		errs = append(errs, fmt.Errorf("config attribute \"key\" is not an address: %q", c.Key))
	}
	if c.Epoch == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"epoch\" is zero"))
	}
	if c.GasLimit == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"gas_limit\" is zero"))
	}
	if c.AverageBlockTimeMsec == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"average_block_time_msec\" is zero"))
	}
	if c.MaxRetryForCommit == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"max_retry_for_commit\" is zero"))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("config attribute \"timeout\" is invalid: %v", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("config attribute \"timeout\" must be positive: %v", d))
		}
	}
	switch c.EventSource {
	case "", EventSourceSubscription, EventSourcePoll:
	default:
		errs = append(errs, fmt.Errorf("config attribute \"event_source\" is unexpected: %s", c.EventSource))
	}
	if bz, err := hex.DecodeString(c.CodeID); err != nil || len(bz) == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"code_id\" is not a hex checksum: %q", c.CodeID))
	}

	// errors.Join returns nil if len(errs) == 0
	return errors.Join(errs...)
}

func (c ChainConfig) storePrefix() string {
	if c.StorePrefix == "" {
		return ibcexported.StoreKey
	}
	return c.StorePrefix
}

func (c ChainConfig) timeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func (c ChainConfig) averageBlockTime() time.Duration {
	return time.Duration(c.AverageBlockTimeMsec) * time.Millisecond
}

func (c ChainConfig) hostAddress() common.Address {
	return common.HexToAddress(c.IBCHostAddress)
}

// keystoreDir returns the path to the keystore for this chain
func keystoreDir(home, chainID string) string {
	return filepath.Join(home, "keystore", chainID)
}

func lightDir(home string) string {
	return filepath.Join(home, "light")
}
