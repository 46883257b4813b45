//go:build sqlite

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"iprange/internal/domain"
	"iprange/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "test.db") + "?cache=shared"
	s, err := New(dsn)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrationsAndCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

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
	if conv.ID == "" || conv.Source != domain.SourceManual || conv.SubnetCount != 3 {
		t.Fatalf("unexpected stored record: %+v", conv)
	}

	got, ok, err := s.GetConversion(ctx, conv.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Subnets) != 3 || got.Subnets[2] != "192.0.2.64/27" {
		t.Fatalf("subnets round-trip: %v", got.Subnets)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not restored")
	}

	list, err := s.ListConversions(ctx, storage.ListOptions{Family: domain.FamilyIPv4})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	empty, err := s.ListConversions(ctx, storage.ListOptions{Family: domain.FamilyIPv6})
	if err != nil || len(empty) != 0 {
		t.Fatalf("ipv6 list: %v len=%d", err, len(empty))
	}

	deleted, err := s.DeleteConversion(ctx, conv.ID)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := s.GetConversion(ctx, conv.ID); ok {
		t.Fatal("record survived delete")
	}
}

func TestSourceUniqueConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := domain.CreateConversion{
		Family:    domain.FamilyIPv4,
		RangeText: "10.0.0.0-10.0.0.255",
		StartAddr: "10.0.0.0",
		EndAddr:   "10.0.0.255",
		Subnets:   []string{"10.0.0.0/24"},
		Source:    "aws:vpc-0abc1234",
	}
	if _, err := s.CreateConversion(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateConversion(ctx, in); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate source err = %v, want ErrConflict", err)
	}

	// Manual records are exempt from the unique source index.
	in.Source = ""
	if _, err := s.CreateConversion(ctx, in); err != nil {
		t.Fatalf("manual create: %v", err)
	}
	if _, err := s.CreateConversion(ctx, in); err != nil {
		t.Fatalf("second manual create: %v", err)
	}

	got, err := s.GetConversionBySource(ctx, "aws:vpc-0abc1234")
	if err != nil {
		t.Fatalf("get by source: %v", err)
	}
	if got.Source != "aws:vpc-0abc1234" {
		t.Fatalf("source = %q", got.Source)
	}
	if _, err := s.GetConversionBySource(ctx, "aws:vpc-absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing source err = %v, want ErrNotFound", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "test.db")
	s1, err := New(dsn)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = s1.Close()
	s2, err := New(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = s2.Close()

	status, err := Status(dsn)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status == "" {
		t.Fatal("empty status")
	}
}
