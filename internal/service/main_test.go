package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/warungpos/api/internal/tenant"
)

// mockSessionConn satisfies tenant.SessionConn. Services under test
// never run SQL through it; the store mocks intercept everything above
// the wire.
type mockSessionConn struct {
	tx *mockTx
}

func (m *mockSessionConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockSessionConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("unexpected Query on session conn")
}

func (m *mockSessionConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("unexpected QueryRow on session conn")
}

func (m *mockSessionConn) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

func (m *mockSessionConn) Release() {}

type mockTx struct {
	commits   int
	rollbacks int
	commitErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// scopedCtx builds a context carrying an activated scope over a mock
// session, the way the middleware does for a real request.
func scopedCtx(tc tenant.Context) (context.Context, *mockSessionConn) {
	conn := &mockSessionConn{}
	scope := tenant.NewScope(conn, tc)
	return tenant.WithScope(context.Background(), scope), conn
}

func cashierTenant() tenant.Context {
	branchID := uuid.New()
	userID := uuid.New()
	return tenant.Context{BranchID: &branchID, UserID: &userID, Role: "CASHIER"}
}

func num(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad numeric literal %q: %v", s, err)
	}
	return decimalToNumeric(d)
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	branchEvents []string
	roleEvents   []string
}

func (n *recordingNotifier) EmitToBranch(branchID uuid.UUID, event string, payload any) {
	n.branchEvents = append(n.branchEvents, event)
}

func (n *recordingNotifier) EmitToRole(branchID uuid.UUID, role string, event string, payload any) {
	n.roleEvents = append(n.roleEvents, role+":"+event)
}
