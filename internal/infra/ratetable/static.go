// Package ratetable provides the carrier pricing backends for the
// shipping quote calculator. The static table here is fully local and
// deterministic; the remote freight-API client in infra/client is an
// alternative implementation of the same port.
package ratetable

import (
	"context"
	"math"
	"sort"

	"github.com/vendalivre/storefront-api/internal/domain"
)

// Carriers and service levels priced by the static table.
const (
	carrierCorreios = "Correios"
	carrierJadlog   = "Jadlog"

	servicePAC     = "PAC"
	serviceSEDEX   = "SEDEX"
	servicePackage = ".Package"
)

// Dimensional divisor used by Brazilian carriers: volumetric weight in
// kg is (w*h*l cm³)/6000. The billable weight is whichever is larger.
const dimensionalDivisor = 6000.0

// Static is a deterministic in-process rate table. Pricing is a pure
// function of billable weight and the CEP macro-region distance between
// origin and destination, so identical inputs always produce identical
// options in identical order.
type Static struct {
	originRegion int
}

// NewStatic creates a static rate table anchored at the warehouse CEP.
func NewStatic(originCEP string) *Static {
	region := 0
	if len(originCEP) > 0 && originCEP[0] >= '0' && originCEP[0] <= '9' {
		region = int(originCEP[0] - '0')
	}
	return &Static{originRegion: region}
}

type serviceRate struct {
	carrier   string
	service   string
	baseFee   float64
	perKg     float64
	perZone   float64
	baseDays  int
	zoneDays  int // extra days per zone step
	maxZone   int // -1 = serves every zone
	maxWeight float64
}

// rates is ordered; combined with the final sort this keeps output
// byte-stable across calls.
var rates = []serviceRate{
	{carrierCorreios, servicePAC, 12.50, 3.20, 2.80, 3, 1, -1, 30},
	{carrierCorreios, serviceSEDEX, 21.90, 5.60, 4.10, 1, 1, -1, 30},
	{carrierJadlog, servicePackage, 14.90, 2.90, 3.50, 2, 1, 2, 30},
}

// Quote prices the cargo for the destination CEP. An empty slice with
// a nil error means no carrier serves the combination; the calculator
// turns that into its no-options failure.
func (s *Static) Quote(_ context.Context, cargo domain.Cargo, destinationCEP string) ([]domain.QuoteOption, error) {
	if len(destinationCEP) != 8 {
		return nil, &domain.ErrValidation{Field: "cep", Message: "destination CEP must have 8 digits"}
	}

	zone := s.zoneFor(destinationCEP)
	billable := BillableWeightKg(cargo)

	options := make([]domain.QuoteOption, 0, len(rates))
	for _, r := range rates {
		if billable > r.maxWeight {
			continue
		}
		if r.maxZone >= 0 && zone > r.maxZone {
			continue
		}

		price := r.baseFee + r.perKg*billable + r.perZone*float64(zone)
		options = append(options, domain.QuoteOption{
			OptionID:     optionID(r.carrier, r.service),
			Carrier:      r.carrier,
			Service:      r.service,
			Price:        math.Round(price*100) / 100,
			DeliveryDays: r.baseDays + r.zoneDays*zone,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Price != options[j].Price {
			return options[i].Price < options[j].Price
		}
		return options[i].DeliveryDays < options[j].DeliveryDays
	})

	return options, nil
}

// zoneFor maps the destination CEP to a distance class from the origin.
// Brazilian CEPs encode the macro-region in the first digit.
func (s *Static) zoneFor(cep string) int {
	region := int(cep[0] - '0')
	zone := region - s.originRegion
	if zone < 0 {
		zone = -zone
	}
	return zone
}

// BillableWeightKg returns the larger of actual and dimensional weight.
func BillableWeightKg(cargo domain.Cargo) float64 {
	volumetric := float64(cargo.Dimensions.WidthCm) *
		float64(cargo.Dimensions.HeightCm) *
		float64(cargo.Dimensions.LengthCm) / dimensionalDivisor
	return math.Max(cargo.WeightKg, volumetric)
}

func optionID(carrier, service string) string {
	id := make([]byte, 0, len(carrier)+len(service)+1)
	for _, s := range []string{carrier, service} {
		if len(id) > 0 {
			id = append(id, '-')
		}
		for i := 0; i < len(s); i++ {
			c := s[i]
			switch {
			case c >= 'A' && c <= 'Z':
				id = append(id, c+'a'-'A')
			case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
				id = append(id, c)
			}
		}
	}
	return string(id)
}
