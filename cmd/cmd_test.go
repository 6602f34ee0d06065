package cmd_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/mock"
	mockmodule "github.com/hyperledger-labs/yui-wasm-relayer/chains/mock/module"
	"github.com/hyperledger-labs/yui-wasm-relayer/cmd"
	"github.com/hyperledger-labs/yui-wasm-relayer/config"
)

const testMnemonic = "math razor capable expose worth grape metal sunset metal sudden usage scheme"

func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	root, err := cmd.NewRootCmd(mockmodule.Module{})
	require.NoError(t, err)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--home", home, "--log-level", "error"))
	err = root.Execute()
	return out.String(), err
}

// setupHome creates a config with one mock chain serving heights 1 to 13.
func setupHome(t *testing.T) string {
	home := t.TempDir()
	_, err := run(t, home, "config", "init")
	require.NoError(t, err)

	var blocks strings.Builder
	for h := 1; h <= 13; h++ {
		fmt.Fprintf(&blocks, "{\"height\":%d,\"timestamp\":%d}\n", h, uint64(h)*uint64(time.Second))
	}
	require.NoError(t, os.WriteFile(filepath.Join(home, "blocks.jsonl"), []byte(blocks.String()), 0600))

	cfg, err := config.LoadConfig(config.DefaultConfigPath(home))
	require.NoError(t, err)
	cc, err := config.NewChainConfig(mock.Family, &mock.ChainConfig{
		ChainID:    "mock0",
		CodeID:     "c0de",
		Key:        "relayer",
		BlocksFile: "blocks.jsonl",
	})
	require.NoError(t, err)
	cfg.AddChain(cc)
	require.NoError(t, cfg.Save(""))
	return home
}

func TestConfigInitAndShow(t *testing.T) {
	home := t.TempDir()

	_, err := run(t, home, "config", "show")
	require.Error(t, err)

	out, err := run(t, home, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, config.DefaultConfigPath(home))

	_, err = run(t, home, "config", "init")
	require.ErrorContains(t, err, "config already exists")

	out, err = run(t, home, "config", "show")
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	require.Equal(t, config.DefaultConfig().Global, cfg.Global)

	out, err = run(t, home, "config", "show", "--yaml")
	require.NoError(t, err)
	require.Contains(t, out, "timeout: 10s")
}

func TestChainsCommands(t *testing.T) {
	home := setupHome(t)

	out, err := run(t, home, "chains", "list")
	require.NoError(t, err)
	require.Equal(t, "0: mock0 (mock)\n", out)

	out, err = run(t, home, "chains", "latest-height", "mock0")
	require.NoError(t, err)
	require.Equal(t, "0-13\n", out)

	out, err = run(t, home, "chains", "health", "mock0")
	require.NoError(t, err)
	require.Equal(t, "mock0: healthy\n", out)

	_, err = run(t, home, "chains", "health", "mock1")
	require.Error(t, err)
}

func TestLightHeaderCommand(t *testing.T) {
	home := setupHome(t)

	out, err := run(t, home, "light", "header", "mock0", "--trusted", "0-10", "--target", "0-13")
	require.NoError(t, err)

	var res struct {
		Target struct {
			Height string `json:"height"`
		} `json:"target"`
		Supporting []struct {
			Height string `json:"height"`
		} `json:"supporting"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "0-13", res.Target.Height)
	require.Len(t, res.Supporting, 2)
	require.Equal(t, "0-11", res.Supporting[0].Height)
	require.Equal(t, "0-12", res.Supporting[1].Height)

	_, err = run(t, home, "light", "header", "mock0", "--trusted", "1-5", "--target", "2-9")
	require.ErrorContains(t, err, "revision")
}

func TestLightStateCommands(t *testing.T) {
	home := setupHome(t)

	out, err := run(t, home, "light", "client-state", "mock0", "--height", "0-7")
	require.NoError(t, err)
	var cs struct {
		ChainID      string `json:"chain_id"`
		LatestHeight string `json:"latest_height"`
		CodeID       string `json:"code_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cs))
	require.Equal(t, "mock0", cs.ChainID)
	require.Equal(t, "0-7", cs.LatestHeight)
	require.Equal(t, "c0de", cs.CodeID)

	out, err = run(t, home, "light", "consensus-state", "mock0")
	require.NoError(t, err)
	var cons struct {
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cons))
	require.NotEmpty(t, cons.Timestamp)
}

func TestKeysCommands(t *testing.T) {
	home := setupHome(t)

	out, err := run(t, home, "keys", "add", "mock0", "relayer", "--mnemonic", testMnemonic)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "relayer cosmos1"), out)
	require.NotContains(t, out, "mnemonic:")

	out, err = run(t, home, "keys", "add", "mock0", "other")
	require.NoError(t, err)
	require.Contains(t, out, "mnemonic:")
}

func TestModulesShow(t *testing.T) {
	out, err := run(t, t.TempDir(), "modules", "show")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, []string{"FAMILY", "CONFIG", "MODULE", "VERSION"}, strings.Fields(lines[0]))
	row := strings.Fields(lines[1])
	require.Len(t, row, 4)
	require.Equal(t, []string{mock.Family, "*mock.ChainConfig"}, row[:2])

	out, err = run(t, t.TempDir(), "modules", "show", "--json")
	require.NoError(t, err)
	var families []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &families))
	require.Len(t, families, 1)
	require.Equal(t, mock.Family, families[0]["family"])
	require.Equal(t, "*mock.ChainConfig", families[0]["config"])
	require.NotEmpty(t, families[0]["module"])
	require.NotEmpty(t, families[0]["version"])
}
