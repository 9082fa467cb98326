package rpc

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// ParseAlgorithm validates a configured algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmFastest:
		return AlgorithmFastest, nil
	case AlgorithmFailover:
		return AlgorithmFailover, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q (choose fastest or failover)", s)
	}
}

// Endpoint is a probed RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
	Stale       bool
}

// Healthy reports whether the endpoint answered and is not lagging.
func (e Endpoint) Healthy() bool { return e.Err == nil && !e.Stale }

// Pick selects an endpoint from probed results according to algo.
// Endpoints must be in configured order; failover relies on it.
func Pick(endpoints []Endpoint, algo Algorithm) (*Endpoint, error) {
	markStale(endpoints)

	switch algo {
	case AlgorithmFailover:
		for i := range endpoints {
			if endpoints[i].Healthy() {
				return &endpoints[i], nil
			}
		}
	default:
		var winner *Endpoint
		for i := range endpoints {
			e := &endpoints[i]
			if !e.Healthy() {
				continue
			}
			if winner == nil || e.Latency < winner.Latency {
				winner = e
			}
		}
		if winner != nil {
			return winner, nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// markStale flags endpoints lagging the best observed block.
func markStale(endpoints []Endpoint) {
	var best uint64
	for _, e := range endpoints {
		if e.Err == nil && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	for i := range endpoints {
		e := &endpoints[i]
		if e.Err == nil && best-e.BlockNumber > staleBlockThreshold {
			e.Stale = true
		}
	}
}
