package chains

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ERC20 ABI for the balanceOf and transfer functions
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}, {"name": "_spender", "type": "address"}],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "_to", "type": "address"}, {"name": "_value", "type": "uint256"}],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// EvmClient wraps one chain's RPC connection with the reads and the single
// write (ERC-20 transfer) the relay needs.
type EvmClient struct {
	profile  *Profile
	client   *ethclient.Client
	logger   *zap.Logger
	erc20ABI abi.ABI
}

// NewEvmClient dials the chain's RPC endpoint
func NewEvmClient(profile *Profile, logger *zap.Logger) (*EvmClient, error) {
	client, err := ethclient.Dial(profile.RpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s client: %w", profile.Name, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &EvmClient{
		profile:  profile,
		client:   client,
		logger:   logger,
		erc20ABI: parsedABI,
	}, nil
}

func (c *EvmClient) ChainName() string {
	return c.profile.Name
}

// NativeBalance returns the native currency balance of an account in wei
func (c *EvmClient) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance on %s: %w", c.profile.Name, err)
	}
	return balance, nil
}

// TokenBalance returns the ERC-20 balance of an account in base units
func (c *EvmClient) TokenBalance(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	data, err := c.erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf on %s: %w", c.profile.Name, err)
	}

	var balance *big.Int
	if err := c.erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}

	return balance, nil
}

// TokenAllowance returns how much of an ERC-20 a spender may move on the
// owner's behalf. The relay pays out with direct transfers, but vault and
// broker integrations check this before approve flows.
func (c *EvmClient) TokenAllowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	data, err := c.erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance call: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance on %s: %w", c.profile.Name, err)
	}

	var allowance *big.Int
	if err := c.erc20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, fmt.Errorf("failed to unpack allowance result: %w", err)
	}

	return allowance, nil
}

// Confirmations returns how many blocks have been mined on top of the
// block containing the transaction, plus one. A transaction that is not
// yet mined, or whose receipt cannot be fetched, returns an error.
func (c *EvmClient) Confirmations(ctx context.Context, txHash common.Hash) (uint64, error) {
	receipt, err := c.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction receipt on %s: %w", c.profile.Name, err)
	}

	if receipt.Status == 0 {
		return 0, fmt.Errorf("transaction %s reverted on %s", txHash.Hex(), c.profile.Name)
	}

	latestBlock, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block on %s: %w", c.profile.Name, err)
	}

	mined := receipt.BlockNumber.Uint64()
	if latestBlock < mined {
		return 0, nil
	}
	return latestBlock - mined + 1, nil
}

// SendToken broadcasts an ERC-20 transfer from the key's account and
// returns the transaction hash. It does not wait for the transfer to be
// mined; settlement is "broadcast succeeded".
func (c *EvmClient) SendToken(ctx context.Context, key *ecdsa.PrivateKey, from common.Address, token common.Address, recipient common.Address, amount *big.Int) (string, error) {
	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce on %s: %w", c.profile.Name, err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price on %s: %w", c.profile.Name, err)
	}

	data, err := c.erc20ABI.Pack("transfer", recipient, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer data: %w", err)
	}

	gasLimit, err := c.estimateTransferGas(ctx, from, token, data)
	if err != nil {
		return "", err
	}

	tx := types.NewTransaction(
		nonce,
		token,
		big.NewInt(0), // no native value for ERC-20 transfers
		gasLimit,
		gasPrice,
		data,
	)

	chainID := big.NewInt(c.profile.ChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction on %s: %w", c.profile.Name, err)
	}

	return signedTx.Hash().Hex(), nil
}

// estimateTransferGas estimates gas for the transfer with a 20% buffer.
// On chains with a configured fallback limit an estimation failure falls
// back to that fixed limit instead of aborting the payout.
func (c *EvmClient) estimateTransferGas(ctx context.Context, from common.Address, token common.Address, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{
		From: from,
		To:   &token,
		Data: data,
	}

	estimatedGas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		if c.profile.FallbackGasLimit > 0 {
			c.logger.Warn("Gas estimation failed, using fallback gas limit",
				zap.String("chain", c.profile.Name),
				zap.Uint64("fallback_gas_limit", c.profile.FallbackGasLimit),
				zap.Error(err))
			return c.profile.FallbackGasLimit, nil
		}
		return 0, fmt.Errorf("failed to estimate gas on %s: %w", c.profile.Name, err)
	}

	return estimatedGas * 120 / 100, nil
}

// Close closes the client connection
func (c *EvmClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
