package light

import (
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go"
	dbm "github.com/cometbft/cometbft-db"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// Store persists the anchor header of each chain's light client.
type Store struct {
	db dbm.DB
}

// OpenStore opens the leveldb database name under dir. Opening is retried
// because a previous process may still hold the lock.
func OpenStore(dir, name string) (*Store, error) {
	var db dbm.DB
	if err := retry.Do(func() error {
		var err error
		db, err = dbm.NewGoLevelDB(name, dir)
		if err != nil {
			return fmt.Errorf("can't open light client database: %w", err)
		}
		return nil
	}, rtyAtt, rtyDel, rtyErr); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewMemStore returns a store that lives in memory only.
func NewMemStore() *Store {
	return &Store{db: dbm.NewMemDB()}
}

func anchorKey(chainID string) []byte {
	return []byte("anchor/" + chainID)
}

// SaveAnchor records the header the light client of chainID starts from.
func (s *Store) SaveAnchor(chainID string, header *wasm.Header) error {
	return s.db.SetSync(anchorKey(chainID), wasm.EncodeHeader(header))
}

// Anchor returns the anchor header of chainID, or ErrNotFound.
func (s *Store) Anchor(chainID string) (*wasm.Header, error) {
	bz, err := s.db.Get(anchorKey(chainID))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "no anchor for chain %s", chainID)
	}
	return wasm.DecodeHeader(bz)
}

// AnchorHeight returns the anchor height of chainID, or fallback when none was saved.
func (s *Store) AnchorHeight(chainID string, fallback clienttypes.Height) (clienttypes.Height, error) {
	h, err := s.Anchor(chainID)
	switch {
	case err == nil:
		return h.Height, nil
	case errorsmod.IsOf(err, coreerrors.ErrNotFound):
		return fallback, nil
	default:
		return clienttypes.Height{}, err
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
