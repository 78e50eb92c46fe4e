package repository

import (
	"context"
	"errors"
)

// CollectionOrders is the change feed topic for orders and their lines
const CollectionOrders = "orders"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrMalformedRow is returned when a stored row does not decode into a valid entity
	ErrMalformedRow = errors.New("malformed row")
)

// ChangeFeed delivers "something changed" notifications between tills.
// Events carry no payload; subscribers re-read the store.
type ChangeFeed interface {
	Publish(ctx context.Context, collection string) error
	// Subscribe registers fn for collection until ctx is done. It returns once the
	// subscription is active.
	Subscribe(ctx context.Context, collection string, fn func()) error
}
