package ratetable_test

import (
	"context"
	"testing"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/ratetable"
)

func smallCargo() domain.Cargo {
	return domain.Cargo{
		WeightKg:   1,
		Dimensions: domain.Dimensions{WidthCm: 20, HeightCm: 10, LengthCm: 15},
	}
}

func TestStatic_QuoteReturnsSortedOptions(t *testing.T) {
	rt := ratetable.NewStatic("01310100")

	options, err := rt.Quote(context.Background(), smallCargo(), "01310100")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected at least one option for a served region")
	}

	for i := 1; i < len(options); i++ {
		if options[i].Price < options[i-1].Price {
			t.Errorf("options not sorted by price: %f before %f", options[i-1].Price, options[i].Price)
		}
	}
	for _, opt := range options {
		if opt.Price < 0 {
			t.Errorf("option %s has negative price", opt.OptionID)
		}
		if opt.DeliveryDays <= 0 {
			t.Errorf("option %s has non-positive delivery days", opt.OptionID)
		}
	}
}

func TestStatic_QuoteIsDeterministic(t *testing.T) {
	rt := ratetable.NewStatic("01310100")

	first, err := rt.Quote(context.Background(), smallCargo(), "90010000")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := rt.Quote(context.Background(), smallCargo(), "90010000")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical option counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("option %d differs between calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestStatic_DistantRegionCostsMore(t *testing.T) {
	rt := ratetable.NewStatic("01310100")

	local, _ := rt.Quote(context.Background(), smallCargo(), "01310100")
	distant, _ := rt.Quote(context.Background(), smallCargo(), "90010000")

	if len(local) == 0 || len(distant) == 0 {
		t.Fatal("expected options for both regions")
	}
	if distant[0].Price <= local[0].Price {
		t.Errorf("expected distant region to cost more: local=%f distant=%f", local[0].Price, distant[0].Price)
	}
}

func TestStatic_OverweightCargoHasNoOptions(t *testing.T) {
	rt := ratetable.NewStatic("01310100")

	heavy := domain.Cargo{
		WeightKg:   45,
		Dimensions: domain.Dimensions{WidthCm: 50, HeightCm: 50, LengthCm: 50},
	}
	options, err := rt.Quote(context.Background(), heavy, "01310100")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(options) != 0 {
		t.Errorf("expected no options for overweight cargo, got %d", len(options))
	}
}

func TestStatic_DimensionalWeightDominatesLightBulkyCargo(t *testing.T) {
	bulky := domain.Cargo{
		WeightKg:   0.5,
		Dimensions: domain.Dimensions{WidthCm: 60, HeightCm: 60, LengthCm: 60},
	}

	billable := ratetable.BillableWeightKg(bulky)
	if billable != 36 {
		t.Errorf("expected billable weight 36 (60*60*60/6000), got %f", billable)
	}
}

func TestStatic_MalformedCEP(t *testing.T) {
	rt := ratetable.NewStatic("01310100")

	_, err := rt.Quote(context.Background(), smallCargo(), "123")
	if err == nil {
		t.Fatal("expected error for short CEP")
	}
}
