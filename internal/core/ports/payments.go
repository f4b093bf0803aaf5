package ports

import "context"

// PushStatus is the provider-side state of a push payment.
type PushStatus string

const (
	PushPending PushStatus = "PENDING"
	PushSuccess PushStatus = "SUCCESS"
	PushFailed  PushStatus = "FAILED"
)

// PushResult is the outcome of a status poll.
type PushResult struct {
	Status            PushStatus
	ProviderReference string
}

// PaymentProvider defines the outbound payment integration: initiate a
// push payment on the payer's device, then poll its status by reference.
// Any error, or any terminal status other than SUCCESS, degrades to the
// manual-deposit fallback.
type PaymentProvider interface {
	InitiatePush(ctx context.Context, amount float64, phone string) (reference string, err error)
	PollStatus(ctx context.Context, reference string) (PushResult, error)
}
