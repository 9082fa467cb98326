package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
)

const probeTimeout = 5 * time.Second

// Probe pings every URL in parallel. Results keep the order of urls.
func Probe(ctx context.Context, urls []string, opts ...chain.Option) []Endpoint {
	results := make([]Endpoint, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			latency, block, err := chain.NewEVMClient(u, opts...).Ping(pctx)
			results[idx] = Endpoint{
				URL:         u,
				Latency:     latency,
				BlockNumber: block,
				Err:         err,
			}
		}(i, url)
	}

	wg.Wait()
	markStale(results)
	return results
}

// Select returns the URL to use for a session. A single configured URL is
// returned without probing.
func Select(ctx context.Context, urls []string, algo Algorithm, opts ...chain.Option) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	winner, err := Pick(Probe(ctx, urls, opts...), algo)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
