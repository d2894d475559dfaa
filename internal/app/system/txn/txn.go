// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrRequired is returned when transactions are mandatory but the server
// cannot run them (standalone mongod, some DocumentDB setups).
var ErrRequired = errors.New("multi-document transactions are required but not supported by this deployment")

// Runner runs functions inside a MongoDB transaction.
//
// When Strict is false and the server rejects transactions, the function is
// run directly with a warning. Callers keep single-document invariants in
// conditional updates so that mode stays safe, though a failure midway can
// leave the second document behind.
type Runner struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Strict bool
}

// New returns a Runner bound to db.
func New(db *mongo.Database, logger *zap.Logger, strict bool) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{DB: db, Log: logger, Strict: strict}
}

// Run executes fn in a transaction. fn must use the ctx it is handed so the
// session travels with every operation.
func (tr *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := tr.DB.Client().StartSession()
	if err != nil {
		return tr.fallback(ctx, err, fn)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return tr.fallback(ctx, err, fn)
	}
	return err
}

func (tr *Runner) fallback(ctx context.Context, cause error, fn func(ctx context.Context) error) error {
	if tr.Strict {
		tr.Log.Error("transaction unavailable", zap.Error(cause))
		return ErrRequired
	}
	tr.Log.Warn("transactions not supported; running without one", zap.Error(cause))
	return fn(ctx)
}

// Messages the server and driver use when the deployment cannot run
// multi-document transactions.
var notSupportedMessages = []string{
	"replica set member or mongos",               // standalone mongod, IllegalOperation (20)
	"current topology does not support sessions", // driver
	"sessions are not supported by the mongodb cluster",
}

// codeIllegalOperation is returned by a standalone server for txnNumber.
const codeIllegalOperation = 20

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions. Only the known server code and messages
// match; any other failure is returned to the caller.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code != codeIllegalOperation {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range notSupportedMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
