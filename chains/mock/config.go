package mock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// ChainConfig configures an in-process chain that serves blocks from memory.
// It is meant for tests and local experiments.
type ChainConfig struct {
	ChainID      string `json:"chain_id"`
	Revision     uint64 `json:"revision"`
	CodeID       string `json:"code_id"`
	Key          string `json:"key"`
	BlocksFile   string `json:"blocks_file,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
	StorePrefix  string `json:"store_prefix,omitempty"`
}

var _ core.ChainConfig = (*ChainConfig)(nil)

func (c ChainConfig) Build(rt *core.Runtime, homePath string) (core.ChainEndpoint, error) {
	ch, err := NewChain(rt, c)
	if err != nil {
		return nil, err
	}
	if c.BlocksFile != "" {
		path := c.BlocksFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(homePath, path)
		}
		if err := ch.LoadBlocks(path); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

func (c ChainConfig) Validate() error {
	isEmpty := func(s string) bool {
		return strings.TrimSpace(s) == ""
	}

	var errs []error
	if isEmpty(c.ChainID) {
		errs = append(errs, fmt.Errorf("config attribute \"chain_id\" is empty"))
	}
	if isEmpty(c.Key) {
		errs = append(errs, fmt.Errorf("config attribute \"key\" is empty"))
	}
	if bz, err := hex.DecodeString(c.CodeID); err != nil {
		errs = append(errs, fmt.Errorf("config attribute \"code_id\" is not hex: %v", err))
	} else if len(bz) == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"code_id\" is empty"))
	}
	if c.PollInterval != "" {
		if _, err := time.ParseDuration(c.PollInterval); err != nil {
			errs = append(errs, fmt.Errorf("config attribute \"poll_interval\" is invalid: %v", err))
		}
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

func (c ChainConfig) pollInterval() time.Duration {
	if d, err := time.ParseDuration(c.PollInterval); err == nil && d > 0 {
		return d
	}
	return 100 * time.Millisecond
}
