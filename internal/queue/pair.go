package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Queue names, also used as database file stems.
const (
	NameBootstrap   = "bootstrap"
	NameIncremental = "incremental"
)

// Pair holds the bootstrap and incremental queues of one mirror.
type Pair struct {
	Bootstrap   *Store
	Incremental *Store
}

// OpenPair opens both queues below dir.
func OpenPair(dir string) (*Pair, error) {
	bootstrap, err := Open(filepath.Join(dir, NameBootstrap+".db"))
	if err != nil {
		return nil, fmt.Errorf("open %s queue: %w", NameBootstrap, err)
	}
	incremental, err := Open(filepath.Join(dir, NameIncremental+".db"))
	if err != nil {
		_ = bootstrap.Close()
		return nil, fmt.Errorf("open %s queue: %w", NameIncremental, err)
	}
	return &Pair{Bootstrap: bootstrap, Incremental: incremental}, nil
}

// Reset discards all queue storage below dir. Queues opened afterwards are empty.
func Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("reset queues: %w", err)
	}
	return nil
}

// Stores returns the queues in drain priority order.
func (p *Pair) Stores() []*Store {
	return []*Store{p.Incremental, p.Bootstrap}
}

// ByName returns the queue with the given name, or nil.
func (p *Pair) ByName(name string) *Store {
	switch name {
	case NameBootstrap:
		return p.Bootstrap
	case NameIncremental:
		return p.Incremental
	default:
		return nil
	}
}

// TotalSize returns the un-acked depth across both queues.
func (p *Pair) TotalSize(ctx context.Context) (int, error) {
	total := 0
	for _, store := range p.Stores() {
		n, err := store.Size(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Requeue returns checked out messages of both queues to pending.
func (p *Pair) Requeue(ctx context.Context) (int64, error) {
	var total int64
	for _, store := range p.Stores() {
		n, err := store.Requeue(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Close closes both queues.
func (p *Pair) Close() error {
	if p == nil {
		return nil
	}
	return errors.Join(p.Incremental.Close(), p.Bootstrap.Close())
}
