package relay

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"celomind/apps/relay/internal/model"
)

// fakeLedger is an in-memory Ledger keeping insertion order for pending
// scans, mirroring the Postgres repository's semantics (COALESCE on
// optional fields, idempotent terminal writes).
type fakeLedger struct {
	order   []string
	records map[string]*model.SwapRecord

	updateCalls int
	failUpdates int // fail this many UpdateStatus calls before succeeding
}

func newFakeLedger(records ...model.SwapRecord) *fakeLedger {
	ledger := &fakeLedger{records: make(map[string]*model.SwapRecord)}
	for _, record := range records {
		copied := record
		ledger.order = append(ledger.order, record.SwapID)
		ledger.records[record.SwapID] = &copied
	}
	return ledger
}

func (l *fakeLedger) ListPending() ([]model.SwapRecord, error) {
	var pending []model.SwapRecord
	for _, id := range l.order {
		if record := l.records[id]; record.Status == model.StatusPending {
			pending = append(pending, *record)
		}
	}
	return pending, nil
}

func (l *fakeLedger) GetByID(swapID string) (*model.SwapRecord, error) {
	record, exists := l.records[swapID]
	if !exists {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (l *fakeLedger) UpdateStatus(swapID, status string, errorNote, targetTxHash *string) error {
	l.updateCalls++
	if l.failUpdates > 0 {
		l.failUpdates--
		return fmt.Errorf("ledger write failed")
	}

	record, exists := l.records[swapID]
	if !exists {
		return fmt.Errorf("no swap with id %s", swapID)
	}
	record.Status = status
	if errorNote != nil {
		record.ErrorNote = errorNote
	}
	if targetTxHash != nil {
		record.TargetTxHash = targetTxHash
	}
	return nil
}

type sentTransfer struct {
	token     common.Address
	recipient common.Address
	amount    *big.Int
}

// fakeChainClient simulates one chain's RPC surface with mutable balances
// and confirmation counts.
type fakeChainClient struct {
	name          string
	native        *big.Int
	tokenBalances map[common.Address]*big.Int
	confirmations map[common.Hash]uint64
	confirmErr    error
	sendErr       error
	sent          []sentTransfer
}

func newFakeChainClient(name string) *fakeChainClient {
	return &fakeChainClient{
		name:          name,
		native:        big.NewInt(0),
		tokenBalances: make(map[common.Address]*big.Int),
		confirmations: make(map[common.Hash]uint64),
	}
}

func (c *fakeChainClient) ChainName() string {
	return c.name
}

func (c *fakeChainClient) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return new(big.Int).Set(c.native), nil
}

func (c *fakeChainClient) TokenBalance(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	balance, exists := c.tokenBalances[token]
	if !exists {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (c *fakeChainClient) Confirmations(ctx context.Context, txHash common.Hash) (uint64, error) {
	if c.confirmErr != nil {
		return 0, c.confirmErr
	}
	count, exists := c.confirmations[txHash]
	if !exists {
		return 0, fmt.Errorf("transaction not found")
	}
	return count, nil
}

func (c *fakeChainClient) SendToken(ctx context.Context, key *ecdsa.PrivateKey, from common.Address, token common.Address, recipient common.Address, amount *big.Int) (string, error) {
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, sentTransfer{token: token, recipient: recipient, amount: new(big.Int).Set(amount)})
	return fmt.Sprintf("0x%064x", len(c.sent)), nil
}

// fakeSettlementStore collects terminal-transition events
type fakeSettlementStore struct {
	events []model.SettlementEvent
}

func (s *fakeSettlementStore) StoreSettlementEvent(event model.SettlementEvent) error {
	s.events = append(s.events, event)
	return nil
}
