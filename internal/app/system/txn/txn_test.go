package txn

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "generic error", err: errors.New("team not found"), want: false},
		{
			name: "command error code 20",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"},
			want: true,
		},
		{name: "illegal operation for another reason", err: mongo.CommandError{Code: 20, Message: "cannot drop the admin database"}, want: false},
		{name: "operation not allowed in transaction", err: mongo.CommandError{Code: 263, Message: "Cannot run 'create' in a multi-document transaction"}, want: false},
		{name: "other command error code", err: mongo.CommandError{Code: 112, Message: "WriteConflict during transaction"}, want: false},
		{name: "no session support", err: errors.New("current topology does not support sessions"), want: true},
		{name: "cluster without sessions", err: errors.New("sessions are not supported by the MongoDB cluster"), want: true},
		{name: "transaction and session words only", err: errors.New("session expired while the transaction was committing"), want: false},
		{name: "transaction keyword only", err: errors.New("transaction failed"), want: false},
		{
			name: "wrapped command error",
			err:  wrap(mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}),
			want: true,
		},
		{name: "upper case", err: errors.New("TRANSACTION NUMBERS ARE ONLY ALLOWED ON A REPLICA SET MEMBER OR MONGOS"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type wrapped struct{ inner error }

func (w wrapped) Error() string { return "toggle coach: " + w.inner.Error() }
func (w wrapped) Unwrap() error { return w.inner }

func wrap(err error) error { return wrapped{inner: err} }
