package rpc

import (
	"math/big"
	"strings"
	"time"

	"chain-sentinel/internal/models"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block is the provider-shaped eth_getBlockByNumber result.
type Block struct {
	Number        string        `json:"number"`
	Hash          string        `json:"hash"`
	Timestamp     string        `json:"timestamp"`
	BaseFeePerGas string        `json:"baseFeePerGas"`
	Transactions  []Transaction `json:"transactions"`
}

// Transaction is the provider-shaped transaction object.
type Transaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Gas         string `json:"gas"`
	GasPrice    string `json:"gasPrice"`
	Input       string `json:"input"`
	Nonce       string `json:"nonce"`
	BlockNumber string `json:"blockNumber"`
}

// Receipt is the provider-shaped eth_getTransactionReceipt result.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	GasUsed         string `json:"gasUsed"`
	ContractAddress string `json:"contractAddress"`
}

// NumberUint64 parses the block number, zero for pending blocks.
func (b *Block) NumberUint64() uint64 {
	n, err := hexutil.DecodeUint64(b.Number)
	if err != nil {
		return 0
	}
	return n
}

// TimestampUnix parses the block timestamp.
func (b *Block) TimestampUnix() int64 {
	n, err := hexutil.DecodeUint64(b.Timestamp)
	if err != nil {
		return 0
	}
	return int64(n)
}

// ToEvent normalizes a provider transaction into the pipeline's event shape.
// Malformed numeric fields default to zero rather than failing the event.
func (t Transaction) ToEvent(network models.NetworkName, pending bool, observedAt time.Time, explorerBaseURL string) models.TransactionEvent {
	hash := strings.ToLower(t.Hash)
	explorerURL := ""
	if explorerBaseURL != "" {
		explorerURL = explorerBaseURL + "/" + hash
	}

	return models.TransactionEvent{
		Hash:        hash,
		Network:     network,
		From:        strings.ToLower(t.From),
		To:          strings.ToLower(t.To),
		Value:       hexToBig(t.Value),
		GasPrice:    hexToBig(t.GasPrice),
		GasLimit:    hexToUint64(t.Gas),
		Nonce:       hexToUint64(t.Nonce),
		Input:       hexToBytes(t.Input),
		Pending:     pending,
		BlockNumber: hexToUint64(t.BlockNumber),
		ObservedAt:  observedAt,
		ExplorerURL: explorerURL,
	}
}

func hexToBig(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, err := hexutil.DecodeBig(s)
	if err != nil {
		return new(big.Int)
	}
	return v
}

func hexToUint64(s string) uint64 {
	if s == "" {
		return 0
	}
	v, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0
	}
	return v
}

func hexToBytes(s string) []byte {
	if s == "" || s == "0x" {
		return nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil
	}
	return b
}
