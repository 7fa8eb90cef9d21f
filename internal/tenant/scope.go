package tenant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warungpos/api/internal/database"
)

// SessionConn is the dedicated database session owned by one unit of
// work. Satisfied by *pgxpool.Conn.
type SessionConn interface {
	database.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Scope is one activated unit of work: a tenant identity bound to a
// dedicated session. It must not be shared across goroutines.
type Scope struct {
	conn   SessionConn
	tenant Context
	tx     pgx.Tx
}

// NewScope binds a tenant identity to an already-acquired session.
// Activate is the usual entry point; this exists for callers that
// manage the session themselves.
func NewScope(conn SessionConn, tc Context) *Scope {
	return &Scope{conn: conn, tenant: tc}
}

// Tenant returns the identity bound to this scope.
func (s *Scope) Tenant() Context {
	return s.tenant
}

// Queries returns the data access manager bound to this scope's
// session, or to its open transaction when one is active.
func (s *Scope) Queries() *database.Queries {
	if s.tx != nil {
		return database.New(s.tx)
	}
	return database.New(s.conn)
}

// RunTx executes fn inside a transaction on the scope's session. A
// nested call reuses the already-open transaction instead of beginning
// a second one, which would self-contend on the session's locks. Any
// error rolls back the whole transaction; there is no partial commit.
func (s *Scope) RunTx(ctx context.Context, fn func(q *database.Queries) error) error {
	if s.tx != nil {
		return fn(database.New(s.tx))
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	s.tx = tx
	defer func() {
		s.tx = nil
		_ = tx.Rollback(context.Background()) //nolint:errcheck
	}()

	if err := fn(database.New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Binder opens a dedicated database session per activation and writes
// the tenant identity into the session variables the RLS policies read.
type Binder struct {
	acquire func(ctx context.Context) (SessionConn, error)
}

// NewBinder creates a Binder over the given pool.
func NewBinder(pool *pgxpool.Pool) *Binder {
	return &Binder{
		acquire: func(ctx context.Context) (SessionConn, error) {
			return pool.Acquire(ctx)
		},
	}
}

// Activate runs fn as one unit of work bound to the given tenant
// identity. It acquires a session, sets the four session variables,
// and resets them to neutral values on every exit path before the
// session goes back to the pool. A nested activation on a context that
// already carries a scope reuses it rather than opening a second
// session.
func (b *Binder) Activate(ctx context.Context, tc Context, fn func(ctx context.Context) error) error {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	conn, err := b.acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	scope := NewScope(conn, tc)

	defer func() {
		// The pool may hand this physical connection to another
		// tenant; the variables must not leak. Reset uses a fresh
		// context so cancellation of the request cannot skip it.
		scope.reset(context.Background())
		conn.Release()
	}()

	if err := scope.bind(ctx); err != nil {
		return fmt.Errorf("bind session variables: %w", err)
	}

	return fn(WithScope(ctx, scope))
}

const bindSQL = `SELECT set_config('app.branch_id', $1, false),
	set_config('app.user_id', $2, false),
	set_config('app.user_role', $3, false),
	set_config('app.is_admin', $4, false)`

func (s *Scope) bind(ctx context.Context) error {
	branchID := ""
	if s.tenant.BranchID != nil {
		branchID = s.tenant.BranchID.String()
	}
	userID := ""
	if s.tenant.UserID != nil {
		userID = s.tenant.UserID.String()
	}
	isAdmin := "false"
	if s.tenant.IsAdmin {
		isAdmin = "true"
	}
	_, err := s.conn.Exec(ctx, bindSQL, branchID, userID, s.tenant.Role, isAdmin)
	return err
}

func (s *Scope) reset(ctx context.Context) {
	_, _ = s.conn.Exec(ctx, bindSQL, "", "", "", "false")
}

var _ SessionConn = (*pgxpool.Conn)(nil)
