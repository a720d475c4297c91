package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TxRunner runs fn as one all-or-nothing unit. Repository calls made with the
// ctx handed to fn take part in the transaction. fn may be invoked more than
// once when the store retries a transient conflict, so it must not carry
// state between attempts.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MongoTxRunner runs multi-document MongoDB transactions with snapshot reads
// and majority writes. Timeout bounds the whole unit, retries included.
type MongoTxRunner struct {
	client  *mongo.Client
	timeout time.Duration
}

func NewMongoTxRunner(client *mongo.Client, timeout time.Duration) *MongoTxRunner {
	return &MongoTxRunner{client: client, timeout: timeout}
}

func (r *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	return err
}
