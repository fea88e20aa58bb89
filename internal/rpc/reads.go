package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockNumber returns the latest block height. Used as the liveness probe by
// the connection pool's health checker.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.CallInto(ctx, &raw, "eth_blockNumber", nil); err != nil {
		return 0, err
	}
	return hexutil.DecodeUint64(raw)
}

// BlockByNumber fetches a block, optionally with full transaction objects.
func (c *Client) BlockByNumber(ctx context.Context, number uint64, includeTxs bool) (*Block, error) {
	var block Block
	params := []interface{}{hexutil.EncodeUint64(number), includeTxs}
	if err := c.CallInto(ctx, &block, "eth_getBlockByNumber", params); err != nil {
		return nil, err
	}
	return &block, nil
}

// PendingBlock fetches the node's view of the pending block with full
// transaction objects. This is the polling ingestion strategy's mempool
// snapshot.
func (c *Client) PendingBlock(ctx context.Context) (*Block, error) {
	var block Block
	params := []interface{}{"pending", true}
	if err := c.CallInto(ctx, &block, "eth_getBlockByNumber", params); err != nil {
		return nil, err
	}
	return &block, nil
}

// TransactionByHash fetches a single transaction.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	if err := c.CallInto(ctx, &tx, "eth_getTransactionByHash", []interface{}{hash}); err != nil {
		return nil, err
	}
	if tx.Hash == "" {
		return nil, fmt.Errorf("transaction %s not found", hash)
	}
	return &tx, nil
}

// TransactionReceipt fetches a transaction receipt.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt Receipt
	if err := c.CallInto(ctx, &receipt, "eth_getTransactionReceipt", []interface{}{hash}); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Balance fetches the latest balance of an address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	var raw string
	if err := c.CallInto(ctx, &raw, "eth_getBalance", []interface{}{address, "latest"}); err != nil {
		return nil, err
	}
	return hexutil.DecodeBig(raw)
}

// Code fetches the deployed bytecode at an address. Empty for EOAs.
func (c *Client) Code(ctx context.Context, address string) ([]byte, error) {
	var raw string
	if err := c.CallInto(ctx, &raw, "eth_getCode", []interface{}{address, "latest"}); err != nil {
		return nil, err
	}
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	return hexutil.Decode(raw)
}

// TransactionCount fetches the latest nonce of an address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	var raw string
	if err := c.CallInto(ctx, &raw, "eth_getTransactionCount", []interface{}{address, "latest"}); err != nil {
		return 0, err
	}
	return hexutil.DecodeUint64(raw)
}
