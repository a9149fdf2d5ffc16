// Package chain provides read-only access to protocol contracts, either
// directly over an Ethereum JSON-RPC endpoint or through an HTTP read proxy.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Reader issues a single read-only call against a protocol contract and
// returns the raw word as an unsigned integer.
type Reader interface {
	Call(ctx context.Context, address, selector string) (*big.Int, error)
}

// ETHReader performs eth_call requests against a JSON-RPC endpoint.
type ETHReader struct {
	client  *ethclient.Client
	timeout time.Duration
}

// Dial connects to the given JSON-RPC endpoint. Each subsequent call carries
// its own timeout so a stalled endpoint cannot hold a cycle hostage.
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (*ETHReader, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}

	logrus.WithField("endpoint", endpoint).Info("Connected to chain RPC")
	return &ETHReader{client: client, timeout: timeout}, nil
}

// Call issues eth_call against address with the given 4-byte selector and
// interprets the returned word as an unsigned big integer.
func (r *ETHReader) Call(ctx context.Context, address, selector string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}

	to := common.HexToAddress(address)
	data := common.FromHex(selector)
	if len(data) < 4 {
		return nil, fmt.Errorf("invalid selector %q", selector)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s %s: %w", address, selector, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("eth_call %s %s: empty return data", address, selector)
	}

	return new(big.Int).SetBytes(out), nil
}

// Close releases the underlying RPC connection.
func (r *ETHReader) Close() {
	r.client.Close()
}
