package escrow

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is the single custodial key that funds all outbound payouts.
// The address is the same on every EVM chain; nonce and balances are not.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewAccount parses the configured private key and verifies the derived
// address against the expected escrow address. A mismatch means payouts
// would leave an unintended account, so it is a hard failure.
func NewAccount(privateKeyHex, expectedAddress string) (*Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid escrow private key: %w", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive escrow public key")
	}
	derived := crypto.PubkeyToAddress(*publicKey)

	if !common.IsHexAddress(expectedAddress) {
		return nil, fmt.Errorf("invalid expected escrow address: %s", expectedAddress)
	}
	expected := common.HexToAddress(expectedAddress)

	if derived != expected {
		return nil, fmt.Errorf("escrow key mismatch: derived address %s does not match configured address %s",
			derived.Hex(), expected.Hex())
	}

	return &Account{key: key, address: derived}, nil
}

func (a *Account) Address() common.Address {
	return a.address
}

func (a *Account) Key() *ecdsa.PrivateKey {
	return a.key
}

// BalanceSnapshot is a point-in-time view of the escrow account's funds
// on one chain. It gates a single dispatch decision and is never cached
// across cycles.
type BalanceSnapshot struct {
	Chain       string
	NativeGas   *big.Int
	PayoutToken *big.Int
}
