package database

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block represents a blockchain block in the database
type Block struct {
	Number           uint64    `db:"number" json:"number"`
	Hash             string    `db:"hash" json:"hash"`
	ParentHash       string    `db:"parent_hash" json:"parentHash"`
	Timestamp        int64     `db:"timestamp" json:"timestamp"`
	GasLimit         uint64    `db:"gas_limit" json:"gasLimit"`
	GasUsed          uint64    `db:"gas_used" json:"gasUsed"`
	TransactionCount int       `db:"transaction_count" json:"transactionCount"`
	CreatedAt        time.Time `db:"created_at" json:"-"`
}

// Transaction represents a blockchain transaction in the database
type Transaction struct {
	Hash             string    `db:"hash" json:"hash"`
	BlockNumber      uint64    `db:"block_number" json:"blockNumber"`
	TransactionIndex int       `db:"transaction_index" json:"transactionIndex"`
	FromAddress      string    `db:"from_address" json:"from"`
	ToAddress        *string   `db:"to_address" json:"to"`
	Value            *big.Int  `db:"value" json:"value"`
	GasPrice         *big.Int  `db:"gas_price" json:"gasPrice"`
	GasLimit         uint64    `db:"gas_limit" json:"gasLimit"`
	GasUsed          uint64    `db:"gas_used" json:"gasUsed"`
	Nonce            uint64    `db:"nonce" json:"nonce"`
	Input            string    `db:"input" json:"input"`
	Status           int       `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"-"`
}

// EventLog represents a smart contract event log in the database
type EventLog struct {
	BlockNumber      uint64    `db:"block_number" json:"blockNumber"`
	BlockHash        string    `db:"block_hash" json:"blockHash"`
	TransactionHash  string    `db:"transaction_hash" json:"transactionHash"`
	TransactionIndex int       `db:"transaction_index" json:"transactionIndex"`
	LogIndex         int       `db:"log_index" json:"logIndex"`
	Address          string    `db:"address" json:"address"`
	Topics           []string  `db:"topics" json:"topics"` // Stored as JSONB
	Data             string    `db:"data" json:"data"`
	Removed          bool      `db:"removed" json:"removed"`
	CreatedAt        time.Time `db:"created_at" json:"-"`
}

// ToEthereumLog converts a stored log row to types.Log
func (l *EventLog) ToEthereumLog() (*types.Log, error) {
	data, err := decodeHexData(l.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data of %s/%d: %w", l.TransactionHash, l.LogIndex, err)
	}

	topics := make([]common.Hash, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = common.HexToHash(t)
	}

	return &types.Log{
		Address:     common.HexToAddress(l.Address),
		Topics:      topics,
		Data:        data,
		BlockNumber: l.BlockNumber,
		TxHash:      common.HexToHash(l.TransactionHash),
		TxIndex:     uint(l.TransactionIndex),
		BlockHash:   common.HexToHash(l.BlockHash),
		Index:       uint(l.LogIndex),
		Removed:     l.Removed,
	}, nil
}

// encodeTopics renders topics for the JSONB column
func encodeTopics(topics []string) ([]byte, error) {
	if topics == nil {
		topics = []string{}
	}
	return json.Marshal(topics)
}

func decodeHexData(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	if !has0xPrefix(s) {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// TxContext is the transaction and block data a swap record borrows from
// the raw tables.
type TxContext struct {
	Hash        string
	BlockNumber uint64
	BlockHash   string
	Timestamp   int64
	From        string
	To          *string
	GasLimit    uint64
	GasUsed     uint64
	GasPrice    *big.Int
}

// Swap is one Augustus swap, recorded from an event or a decoded call
type Swap struct {
	ID              string   `json:"id"`
	UUID            *string  `json:"uuid,omitempty"`
	Augustus        string   `json:"augustus"`
	AugustusVersion string   `json:"augustusVersion"`
	Side            string   `json:"side"`
	Method          string   `json:"method"`
	Initiator       *string  `json:"initiator,omitempty"`
	Beneficiary     string   `json:"beneficiary"`
	SrcToken        string   `json:"srcToken"`
	DestToken       string   `json:"destToken"`
	SrcAmount       *big.Int `json:"srcAmount"`
	DestAmount      *big.Int `json:"destAmount"`
	ExpectedAmount  *big.Int `json:"expectedAmount,omitempty"`
	Referrer        *string  `json:"referrer,omitempty"`
	ReferrerFee     *big.Int `json:"referrerFee,omitempty"`
	ParaswapFee     *big.Int `json:"paraswapFee,omitempty"`
	ReferralProgram *bool    `json:"referralProgram,omitempty"`
	FeeToken        *string  `json:"feeToken,omitempty"`
	FeeCode         *big.Int `json:"feeCode,omitempty"`
	TxHash          string   `json:"txHash"`
	TxOrigin        *string  `json:"txOrigin,omitempty"`
	TxTarget        *string  `json:"txTarget,omitempty"`
	TxGasUsed       *big.Int `json:"txGasUsed,omitempty"`
	TxGasPrice      *big.Int `json:"txGasPrice,omitempty"`
	BlockHash       string   `json:"blockHash"`
	BlockNumber     uint64   `json:"blockNumber"`
	Timestamp       int64    `json:"timestamp"`
}

// Fee is the standalone FeeTaken record emitted by Augustus 2.0.0
type Fee struct {
	ID              string   `json:"id"`
	Augustus        string   `json:"augustus"`
	AugustusVersion string   `json:"augustusVersion"`
	Fee             *big.Int `json:"fee"`
	PartnerShare    *big.Int `json:"partnerShare"`
	ParaswapShare   *big.Int `json:"paraswapShare"`
	TxHash          string   `json:"txHash"`
	BlockNumber     uint64   `json:"blockNumber"`
	Timestamp       int64    `json:"timestamp"`
}

// RewardKind selects the ledger a partner share is credited to
type RewardKind string

const (
	RewardReferrer RewardKind = "referrer"
	RewardPartner  RewardKind = "partner"
)

// Table returns the ledger table for the kind
func (k RewardKind) Table() (string, error) {
	switch k {
	case RewardReferrer:
		return "referrer_fees", nil
	case RewardPartner:
		return "partner_fees", nil
	default:
		return "", fmt.Errorf("unknown reward kind %q", string(k))
	}
}

// RewardCredit is an amount to add to one ledger entry
type RewardCredit struct {
	Kind    RewardKind
	Account string
	Token   string
	Amount  *big.Int
}

// LedgerID is the ledger key for an account and token
func (c *RewardCredit) LedgerID() string {
	return LedgerID(c.Account, c.Token)
}

// RewardLedger is the accumulated reward of one account in one token
type RewardLedger struct {
	ID           string     `json:"id"`
	Kind         RewardKind `json:"kind"`
	Account      string     `json:"account"`
	Token        string     `json:"token"`
	TotalRewards *big.Int   `json:"totalRewards"`
}

// LedgerID formats the ledger key "<account>-<token>"
func LedgerID(account, token string) string {
	return account + "-" + token
}

// Helper functions for conversions

// AddressToLower is the form addresses are stored in
func AddressToLower(addr common.Address) string {
	return hexutil.Encode(addr.Bytes())
}

func BigIntToNumeric(value *big.Int) *string {
	if value == nil {
		return nil
	}
	str := value.String()
	return &str
}

// NumericToBigInt parses a NUMERIC column scanned as text
func NumericToBigInt(value *string) *big.Int {
	if value == nil {
		return nil
	}
	n, ok := new(big.Int).SetString(*value, 10)
	if !ok {
		return nil
	}
	return n
}
