// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	MaxRetries     = 3
	RetryDelay     = 500 * time.Millisecond
)

// NodeClient представляет отдельный RPC узел
type NodeClient struct {
	Client *solanarpc.Client
	URL    string
}

// Options задает политику повторов пула
type Options struct {
	MaxRetries uint
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultOptions возвращает политику по умолчанию
func DefaultOptions() Options {
	return Options{
		MaxRetries: MaxRetries,
		RetryDelay: RetryDelay,
		Timeout:    DefaultTimeout,
	}
}

// Pool распределяет запросы по узлам по кругу и переключает узел при ошибке.
type Pool struct {
	nodes   []*NodeClient
	current int
	mu      sync.Mutex
	opts    Options
	logger  *zap.Logger
}

// NewPool создает пул клиентов по списку URL
func NewPool(urls []string, opts Options, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = RetryDelay
	}

	nodes := make([]*NodeClient, len(urls))
	for i, url := range urls {
		nodes[i] = &NodeClient{Client: solanarpc.New(url), URL: url}
	}
	return &Pool{
		nodes:  nodes,
		opts:   opts,
		logger: logger.Named("rpc-pool"),
	}, nil
}

// Size возвращает число узлов
func (p *Pool) Size() int {
	return len(p.nodes)
}

func (p *Pool) next() *NodeClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	node := p.nodes[p.current]
	p.current = (p.current + 1) % len(p.nodes)
	return node
}

// Execute runs op against the pool. Every attempt goes to the next node; retryable
// errors back off exponentially, final errors return at once. Errors are wrapped in
// *Error with the node URL and method.
func Execute[T any](ctx context.Context, p *Pool, method string, op func(ctx context.Context, node *NodeClient) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.RetryDelay
	policy.MaxInterval = p.opts.RetryDelay * 10

	operation := func() (T, error) {
		node := p.next()

		reqCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()

		res, err := op(reqCtx, node)
		if err == nil {
			return res, nil
		}
		wrapped := NewError(err, node.URL, method)
		if !IsRetryableError(err) {
			return res, backoff.Permanent(wrapped)
		}
		return res, wrapped
	}

	notify := func(err error, d time.Duration) {
		p.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.Error(err),
			zap.Duration("backoff", d))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.opts.MaxRetries),
		backoff.WithNotify(notify))
}
