package pool

import (
	"context"
	"fmt"
	"math/big"

	"chain-sentinel/internal/models"
	"chain-sentinel/internal/rpc"
)

// ErrUnknownNetwork is returned for read operations on unconfigured networks.
var ErrUnknownNetwork = fmt.Errorf("unknown network")

// endpointFor resolves the best endpoint or fails for unknown networks.
func (p *Pool) endpointFor(network models.NetworkName) (*Endpoint, error) {
	ep, ok := p.GetBestEndpoint(network)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	return ep, nil
}

// GetBlockNumber returns the latest block height for a network.
func (p *Pool) GetBlockNumber(ctx context.Context, network models.NetworkName) (uint64, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return 0, err
	}
	height, err := ep.Client.BlockNumber(ctx)
	if err != nil {
		p.recordFailure(ep)
		return 0, err
	}
	p.recordSuccess(ep)
	return height, nil
}

// GetBlock fetches a block by number, optionally with full transactions.
func (p *Pool) GetBlock(ctx context.Context, network models.NetworkName, number uint64, includeTxs bool) (*rpc.Block, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	block, err := ep.Client.BlockByNumber(ctx, number, includeTxs)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return block, nil
}

// GetPendingBlock fetches the pending-pool snapshot for a network.
func (p *Pool) GetPendingBlock(ctx context.Context, network models.NetworkName) (*rpc.Block, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	block, err := ep.Client.PendingBlock(ctx)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return block, nil
}

// GetTransaction fetches a transaction by hash.
func (p *Pool) GetTransaction(ctx context.Context, network models.NetworkName, hash string) (*rpc.Transaction, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	tx, err := ep.Client.TransactionByHash(ctx, hash)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return tx, nil
}

// GetTransactionReceipt fetches a transaction receipt by hash.
func (p *Pool) GetTransactionReceipt(ctx context.Context, network models.NetworkName, hash string) (*rpc.Receipt, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	receipt, err := ep.Client.TransactionReceipt(ctx, hash)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return receipt, nil
}

// GetBalance fetches the balance of an address in wei.
func (p *Pool) GetBalance(ctx context.Context, network models.NetworkName, address string) (*big.Int, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	balance, err := ep.Client.Balance(ctx, address)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return balance, nil
}

// GetCode fetches the deployed bytecode at an address.
func (p *Pool) GetCode(ctx context.Context, network models.NetworkName, address string) ([]byte, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return nil, err
	}
	code, err := ep.Client.Code(ctx, address)
	if err != nil {
		p.recordFailure(ep)
		return nil, err
	}
	p.recordSuccess(ep)
	return code, nil
}

// GetTransactionCount fetches the latest nonce of an address.
func (p *Pool) GetTransactionCount(ctx context.Context, network models.NetworkName, address string) (uint64, error) {
	ep, err := p.endpointFor(network)
	if err != nil {
		return 0, err
	}
	nonce, err := ep.Client.TransactionCount(ctx, address)
	if err != nil {
		p.recordFailure(ep)
		return 0, err
	}
	p.recordSuccess(ep)
	return nonce, nil
}
