// Package deploy reconciles the cloud side of the bot: the content bucket on
// S3, the CloudFront stack in front of it, and the env file that records the
// stack outputs. Every operation is written to be safely re-runnable; a
// deploy against converged infrastructure performs no mutations.
package deploy

import (
	"context"
	"time"
)

// Deployer drives the deploy path against the AWS APIs in Clients.
type Deployer struct {
	buckets BucketAPI
	objects ObjectAPI
	stacks  StackAPI
	cdn     CDNAPI

	// Confirm approves resource creation before it happens. The deploy
	// command wires this to an interactive prompt unless --auto-approve is
	// given.
	Confirm func(prompt string) bool

	// PollInterval is the delay between stack and change set status probes.
	PollInterval time.Duration
}

// New returns a Deployer over the given clients. Confirmation defaults to
// approving everything; callers that want a prompt replace Confirm.
func New(clients *Clients) *Deployer {
	return &Deployer{
		buckets:      clients.Buckets,
		objects:      clients.Objects,
		stacks:       clients.Stacks,
		cdn:          clients.CDN,
		Confirm:      func(string) bool { return true },
		PollInterval: 5 * time.Second,
	}
}

// sleep waits one poll interval or until the context is cancelled.
func (d *Deployer) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.PollInterval):
		return nil
	}
}
