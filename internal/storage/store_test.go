package storage

import (
	"context"
	"errors"
	"testing"

	"iprange/internal/domain"
)

func sampleCreate(source string) domain.CreateConversion {
	return domain.CreateConversion{
		Family:    domain.FamilyIPv4,
		Name:      "office",
		RangeText: "192.0.2.1-192.0.2.100",
		StartAddr: "192.0.2.1",
		EndAddr:   "192.0.2.100",
		Subnets:   []string{"192.0.2.1/32", "192.0.2.2/31"},
		Source:    source,
	}
}

func TestMemoryStoreCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	conv, err := s.CreateConversion(ctx, sampleCreate(""))
	if err != nil {
		t.Fatalf("CreateConversion: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected generated ID")
	}
	if conv.Source != domain.SourceManual {
		t.Fatalf("source = %q, want %q", conv.Source, domain.SourceManual)
	}
	if conv.SubnetCount != 2 {
		t.Fatalf("subnet_count = %d, want 2", conv.SubnetCount)
	}

	got, ok, err := s.GetConversion(ctx, conv.ID)
	if err != nil || !ok {
		t.Fatalf("GetConversion: ok=%v err=%v", ok, err)
	}
	if got.RangeText != conv.RangeText {
		t.Fatalf("range = %q, want %q", got.RangeText, conv.RangeText)
	}

	deleted, err := s.DeleteConversion(ctx, conv.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteConversion: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := s.GetConversion(ctx, conv.ID); ok {
		t.Fatal("conversion still present after delete")
	}
	if deleted, _ := s.DeleteConversion(ctx, conv.ID); deleted {
		t.Fatal("second delete reported true")
	}
}

func TestMemoryStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	cases := []struct {
		name string
		in   domain.CreateConversion
	}{
		{"bad family", domain.CreateConversion{Family: "ipv5", RangeText: "x", StartAddr: "a", EndAddr: "b", Subnets: []string{"c"}}},
		{"missing range", domain.CreateConversion{Family: domain.FamilyIPv4, StartAddr: "a", EndAddr: "b", Subnets: []string{"c"}}},
		{"no subnets", domain.CreateConversion{Family: domain.FamilyIPv4, RangeText: "x", StartAddr: "a", EndAddr: "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreateConversion(ctx, tc.in); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestMemoryStoreSourceConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.CreateConversion(ctx, sampleCreate("aws:vpc-0abc1234")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateConversion(ctx, sampleCreate("aws:vpc-0abc1234")); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	// Manual submissions never conflict with each other.
	if _, err := s.CreateConversion(ctx, sampleCreate(domain.SourceManual)); err != nil {
		t.Fatalf("manual create: %v", err)
	}
	if _, err := s.CreateConversion(ctx, sampleCreate(domain.SourceManual)); err != nil {
		t.Fatalf("second manual create: %v", err)
	}

	got, err := s.GetConversionBySource(ctx, "aws:vpc-0abc1234")
	if err != nil {
		t.Fatalf("GetConversionBySource: %v", err)
	}
	if got.Source != "aws:vpc-0abc1234" {
		t.Fatalf("source = %q", got.Source)
	}
	if _, err := s.GetConversionBySource(ctx, "aws:vpc-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	v4 := sampleCreate("")
	if _, err := s.CreateConversion(ctx, v4); err != nil {
		t.Fatal(err)
	}
	v6 := domain.CreateConversion{
		Family:    domain.FamilyIPv6,
		RangeText: "2001:0db8:0000:0000:0000:0000:0000:0001-2001:0db8:0000:0000:0000:0000:0000:0064",
		StartAddr: "2001:0db8:0000:0000:0000:0000:0000:0001",
		EndAddr:   "2001:0db8:0000:0000:0000:0000:0000:0064",
		Subnets:   []string{"2001:0db8:0000:0000:0000:0000:0000:0001/128"},
		Source:    "aws:vpc-0def5678",
	}
	if _, err := s.CreateConversion(ctx, v6); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListConversions(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	onlyV6, err := s.ListConversions(ctx, ListOptions{Family: domain.FamilyIPv6})
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyV6) != 1 || onlyV6[0].Family != domain.FamilyIPv6 {
		t.Fatalf("family filter returned %+v", onlyV6)
	}

	aws, err := s.ListConversions(ctx, ListOptions{SourcePrefix: "aws:"})
	if err != nil {
		t.Fatal(err)
	}
	if len(aws) != 1 || aws[0].Source != "aws:vpc-0def5678" {
		t.Fatalf("source filter returned %+v", aws)
	}

	limited, err := s.ListConversions(ctx, ListOptions{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit returned %d results", len(limited))
	}
	offside, err := s.ListConversions(ctx, ListOptions{Offset: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(offside) != 0 {
		t.Fatalf("offset past end returned %d results", len(offside))
	}
}
