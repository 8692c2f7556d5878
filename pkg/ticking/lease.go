package ticking

import "context"

// Lease grants the ticking role. Acquire is called before every tick and
// both takes and renews the lease.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLease is always held. It relies on running a single ticking owner.
type LocalLease struct{}

func NewLocalLease() *LocalLease {
	return &LocalLease{}
}

func (*LocalLease) Acquire(context.Context) (bool, error) {
	return true, nil
}

func (*LocalLease) Release(context.Context) error {
	return nil
}
