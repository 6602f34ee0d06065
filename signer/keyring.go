package signer

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	cryptocodec "github.com/cosmos/cosmos-sdk/crypto/codec"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	"github.com/cosmos/go-bip39"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

const (
	keyringAppName = "wasm-relayer"
	cosmosCoinType = 118
)

// Keyring is a key store over a cosmos-sdk keyring. Addresses are rendered
// with the bech32 prefix of the chain.
type Keyring struct {
	kr     keyring.Keyring
	prefix string
}

var _ core.KeyStore = (*Keyring)(nil)

// NewKeyring opens a keyring of the given backend under dir.
func NewKeyring(backend, dir, prefix string, cdc codec.Codec) (*Keyring, error) {
	kr, err := keyring.New(keyringAppName, backend, dir, nil, cdc)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "keyring: %v", err)
	}
	return &Keyring{kr: kr, prefix: prefix}, nil
}

// NewMemKeyring returns a keyring that lives in memory only.
func NewMemKeyring(prefix string, cdc codec.Codec) *Keyring {
	return &Keyring{kr: keyring.NewInMemory(cdc), prefix: prefix}
}

// MakeKeyringCodec returns a codec that knows the public key types stored in a keyring.
func MakeKeyringCodec() codec.Codec {
	registry := codectypes.NewInterfaceRegistry()
	cryptocodec.RegisterInterfaces(registry)
	return codec.NewProtoCodec(registry)
}

// NewMnemonic generates a 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropySeed, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropySeed)
}

func (k *Keyring) Keyring() keyring.Keyring {
	return k.kr
}

func (k *Keyring) GetKey(name string) (*core.KeyEntry, error) {
	rec, err := k.kr.Key(name)
	if err != nil {
		if errorsmod.IsOf(err, sdkerrors.ErrKeyNotFound) {
			return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "key %s", name)
		}
		return nil, err
	}
	return k.entry(rec)
}

// AddKey derives a secp256k1 key from mnemonic on the cosmos HD path.
func (k *Keyring) AddKey(name, mnemonic string) (*core.KeyEntry, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "invalid mnemonic for key %s", name)
	}
	path := hd.CreateHDPath(cosmosCoinType, 0, 0).String()
	rec, err := k.kr.NewAccount(name, mnemonic, "", path, hd.Secp256k1)
	if err != nil {
		return nil, err
	}
	return k.entry(rec)
}

func (k *Keyring) ListKeys() ([]*core.KeyEntry, error) {
	recs, err := k.kr.List()
	if err != nil {
		return nil, err
	}
	entries := make([]*core.KeyEntry, 0, len(recs))
	for _, rec := range recs {
		e, err := k.entry(rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Signer returns a signer backed by the key named name.
func (k *Keyring) Signer(name string) Signer {
	return &keyringSigner{kr: k.kr, name: name}
}

func (k *Keyring) entry(rec *keyring.Record) (*core.KeyEntry, error) {
	addr, err := rec.GetAddress()
	if err != nil {
		return nil, err
	}
	pub, err := rec.GetPubKey()
	if err != nil {
		return nil, err
	}
	bech, err := bech32.ConvertAndEncode(k.prefix, addr)
	if err != nil {
		return nil, err
	}
	return &core.KeyEntry{Name: rec.Name, Address: bech, PubKey: pub.Bytes()}, nil
}

type keyringSigner struct {
	kr   keyring.Keyring
	name string
}

func (s *keyringSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	sig, _, err := s.kr.Sign(s.name, digest, signing.SignMode_SIGN_MODE_DIRECT)
	return sig, err
}

func (s *keyringSigner) GetPublicKey(_ context.Context) ([]byte, error) {
	rec, err := s.kr.Key(s.name)
	if err != nil {
		return nil, err
	}
	pub, err := rec.GetPubKey()
	if err != nil {
		return nil, err
	}
	return pub.Bytes(), nil
}
