package crypto

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// MessageFromTx derives the signing message from a serialized transaction.
// The message is the transaction hash, so a signature checked against it is
// bound to that exact spend.
func MessageFromTx(rawTx []byte) ([]byte, error) {
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	txHash := tx.TxHash()
	return txHash[:], nil
}
