package permkit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// contextKeyConn carries the connection a transaction body must run on.
const contextKeyConn contextKey = "permkit:conn"

// withConn pins statements issued through the service to the given
// connection, normally an open transaction.
func withConn(ctx context.Context, db dbkit.IDB) context.Context {
	return context.WithValue(ctx, contextKeyConn, db)
}

// conn returns the connection a statement should run on: the transaction
// carried by the context when inside Transaction, the pooled database
// otherwise. Every query in the service resolves through here.
func (s *Service) conn(ctx context.Context) dbkit.IDB {
	if db, ok := ctx.Value(contextKeyConn).(dbkit.IDB); ok && db != nil {
		return db
	}
	return s.db
}

// Transaction executes a function within a database transaction with
// automatic commit/rollback. If the function returns an error, the
// transaction is rolled back. Otherwise, it's committed.
//
// The transaction travels in the context handed to fn: service calls made
// with that context run on the transaction, so a failing step leaves no
// partial state behind. Calls made with a different context escape it.
//
// Grant mutations, user/role updates and everyone-group sync all run
// through here.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if err := service.Grant(ctx, holder, scope, capability); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return nil // This will cause a commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a transaction: use a savepoint.
	if tx, ok := s.conn(ctx).(*dbkit.Tx); ok {
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withConn(ctx, tx))
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withConn(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// TransactionWithOptions executes a function within a database transaction
// with custom options. Supports read-only transactions, isolation levels and
// other transaction parameters. The transaction travels in the context handed
// to fn, like Transaction.
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error {
	if tx, ok := s.conn(ctx).(*dbkit.Tx); ok {
		// Nested transactions fall back to savepoints without options.
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withConn(ctx, tx))
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(withConn(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful to take a consistent snapshot across several
// evaluator loads.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
//	    evaluator, err := service.GetActorEvaluator(ctx, userID)
//	    ...
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
