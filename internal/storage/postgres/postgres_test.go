//go:build postgres

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"iprange/internal/domain"
	"iprange/internal/storage"
)

// testDB holds a shared database connection for the test suite,
// initialized once via TestMain.
var testDB struct {
	connStr   string
	pool      *pgxpool.Pool
	store     *Store
	container testcontainers.Container
}

// TestMain sets up a PostgreSQL database for tests. It supports two modes:
//  1. DATABASE_URL env var - uses an existing PostgreSQL instance (CI/custom)
//  2. testcontainers-go - automatically starts a PostgreSQL container
func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("iprange_test"),
			tcpostgres.WithUsername("iprange"),
			tcpostgres.WithPassword("iprange"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}
		testDB.container = container

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
			_ = container.Terminate(ctx)
			os.Exit(1)
		}
	}
	testDB.connStr = connStr

	store, err := New(connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create store: %v\n", err)
		if testDB.container != nil {
			_ = testDB.container.Terminate(ctx)
		}
		os.Exit(1)
	}
	testDB.store = store
	testDB.pool = store.Pool()

	code := m.Run()

	_ = store.Close()
	if testDB.container != nil {
		_ = testDB.container.Terminate(ctx)
	}
	os.Exit(code)
}

// resetDB truncates the data tables between tests to ensure isolation.
func resetDB(t *testing.T) {
	t.Helper()
	if _, err := testDB.pool.Exec(context.Background(), `TRUNCATE conversions`); err != nil {
		t.Fatalf("truncate conversions: %v", err)
	}
}

func TestConversionCRUD(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s := testDB.store

	conv, err := s.CreateConversion(ctx, domain.CreateConversion{
		Family:    domain.FamilyIPv4,
		Name:      "lab",
		RangeText: "192.0.2.1-192.0.2.100",
		StartAddr: "192.0.2.1",
		EndAddr:   "192.0.2.100",
		Subnets:   []string{"192.0.2.1/32", "192.0.2.2/31", "192.0.2.64/27"},
	})
	if err != nil {
		t.Fatalf("create conversion: %v", err)
	}
	if conv.Source != domain.SourceManual || conv.SubnetCount != 3 {
		t.Fatalf("unexpected stored record: %+v", conv)
	}

	got, ok, err := s.GetConversion(ctx, conv.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Subnets) != 3 || got.Subnets[0] != "192.0.2.1/32" {
		t.Fatalf("subnets round-trip: %v", got.Subnets)
	}

	list, err := s.ListConversions(ctx, storage.ListOptions{Family: domain.FamilyIPv4})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}

	deleted, err := s.DeleteConversion(ctx, conv.ID)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := s.GetConversion(ctx, conv.ID); ok {
		t.Fatal("record survived delete")
	}
}

func TestSourceUniqueIndex(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s := testDB.store

	in := domain.CreateConversion{
		Family:    domain.FamilyIPv6,
		RangeText: "2001:0db8:0000:0000:0000:0000:0000:0000-2001:0db8:0000:0000:0000:0000:0000:ffff",
		StartAddr: "2001:0db8:0000:0000:0000:0000:0000:0000",
		EndAddr:   "2001:0db8:0000:0000:0000:0000:0000:ffff",
		Subnets:   []string{"2001:0db8:0000:0000:0000:0000:0000:0000/112"},
		Source:    "aws:vpc-0abc1234",
	}
	if _, err := s.CreateConversion(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateConversion(ctx, in); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate source err = %v, want ErrConflict", err)
	}

	got, err := s.GetConversionBySource(ctx, "aws:vpc-0abc1234")
	if err != nil {
		t.Fatalf("get by source: %v", err)
	}
	if got.Family != domain.FamilyIPv6 {
		t.Fatalf("family = %q", got.Family)
	}
	if _, err := s.GetConversionBySource(ctx, "aws:vpc-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing source err = %v, want ErrNotFound", err)
	}
}

func TestListPagination(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s := testDB.store

	for i := 0; i < 5; i++ {
		_, err := s.CreateConversion(ctx, domain.CreateConversion{
			Family:    domain.FamilyIPv4,
			RangeText: fmt.Sprintf("10.0.%d.0-10.0.%d.255", i, i),
			StartAddr: fmt.Sprintf("10.0.%d.0", i),
			EndAddr:   fmt.Sprintf("10.0.%d.255", i),
			Subnets:   []string{fmt.Sprintf("10.0.%d.0/24", i)},
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := s.ListConversions(ctx, storage.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page len = %d, want 2", len(page))
	}
	tail, err := s.ListConversions(ctx, storage.ListOptions{Offset: 4})
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 {
		t.Fatalf("tail len = %d, want 1", len(tail))
	}
}
