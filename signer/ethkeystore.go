package signer

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

const ethereumHDPath = "m/44'/60'/0'/0/0"

// EthKeystore is a key store over a go-ethereum keystore directory.
// Keys are named by their hex address.
type EthKeystore struct {
	ks         *keystore.KeyStore
	passphrase string
}

var _ core.KeyStore = (*EthKeystore)(nil)

func NewEthKeystore(dir, passphrase string) *EthKeystore {
	return &EthKeystore{
		ks:         keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP),
		passphrase: passphrase,
	}
}

func (k *EthKeystore) KeyStore() *keystore.KeyStore {
	return k.ks
}

func (k *EthKeystore) Passphrase() string {
	return k.passphrase
}

// Account returns the account whose hex address is name.
func (k *EthKeystore) Account(name string) (accounts.Account, error) {
	if !common.IsHexAddress(name) {
		return accounts.Account{}, errorsmod.Wrapf(coreerrors.ErrNotFound, "key %s is not a hex address", name)
	}
	acc, err := k.ks.Find(accounts.Account{Address: common.HexToAddress(name)})
	if errors.Is(err, keystore.ErrNoMatch) {
		return accounts.Account{}, errorsmod.Wrapf(coreerrors.ErrNotFound, "key %s", name)
	} else if err != nil {
		return accounts.Account{}, err
	}
	return acc, nil
}

func (k *EthKeystore) GetKey(name string) (*core.KeyEntry, error) {
	acc, err := k.Account(name)
	if err != nil {
		return nil, err
	}
	return k.entry(acc)
}

// AddKey derives a key from mnemonic on the ethereum HD path and imports it.
// name is ignored; the key is named by its address.
func (k *EthKeystore) AddKey(_ string, mnemonic string) (*core.KeyEntry, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errorsmod.Wrap(coreerrors.ErrInvalidConfig, "invalid mnemonic")
	}
	bz, err := hd.Secp256k1.Derive()(mnemonic, "", ethereumHDPath)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.ToECDSA(bz)
	if err != nil {
		return nil, err
	}
	acc, err := k.ks.ImportECDSA(priv, k.passphrase)
	if errors.Is(err, keystore.ErrAccountAlreadyExists) {
		acc, err = k.ks.Find(accounts.Account{Address: crypto.PubkeyToAddress(priv.PublicKey)})
	}
	if err != nil {
		return nil, err
	}
	return k.entry(acc)
}

func (k *EthKeystore) ListKeys() ([]*core.KeyEntry, error) {
	var entries []*core.KeyEntry
	for _, acc := range k.ks.Accounts() {
		e, err := k.entry(acc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Signer returns a signer backed by the account named name.
func (k *EthKeystore) Signer(name string) (Signer, error) {
	acc, err := k.Account(name)
	if err != nil {
		return nil, err
	}
	return &ethSigner{ks: k.ks, acc: acc, passphrase: k.passphrase}, nil
}

func (k *EthKeystore) entry(acc accounts.Account) (*core.KeyEntry, error) {
	s := &ethSigner{ks: k.ks, acc: acc, passphrase: k.passphrase}
	pub, err := s.GetPublicKey(context.Background())
	if err != nil {
		return nil, err
	}
	return &core.KeyEntry{Name: acc.Address.Hex(), Address: acc.Address.Hex(), PubKey: pub}, nil
}

type ethSigner struct {
	ks         *keystore.KeyStore
	acc        accounts.Account
	passphrase string
}

func (s *ethSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	return s.ks.SignHashWithPassphrase(s.acc, s.passphrase, digest)
}

// GetPublicKey recovers the uncompressed public key from a signature, as the
// keystore does not expose it.
func (s *ethSigner) GetPublicKey(ctx context.Context) ([]byte, error) {
	digest := crypto.Keccak256([]byte(s.acc.Address.Hex()))
	sig, err := s.Sign(ctx, digest)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, err
	}
	return crypto.FromECDSAPub(pub), nil
}
