package geo

import (
	"math"
	"testing"

	"skyeats/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 10.7769, Lng: 106.7009},
			b:         types.Point{Lat: 10.7769, Lng: 106.7009},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Ben Thanh Market to Tan Son Nhat (~7km)",
			a:         types.Point{Lat: 10.7725, Lng: 106.6980},
			b:         types.Point{Lat: 10.8188, Lng: 106.6520},
			wantKm:    7.2,
			tolerance: 1.0,
		},
		{
			name:      "Hanoi to Ho Chi Minh City (~1140km)",
			a:         types.Point{Lat: 21.0278, Lng: 105.8342},
			b:         types.Point{Lat: 10.8231, Lng: 106.6297},
			wantKm:    1140,
			tolerance: 30,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 10.5, Lng: 106.5}
	b := types.Point{Lat: 11.5, Lng: 107.5}
	d1 := DistanceKm(a, b)
	d2 := DistanceKm(b, a)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKm_NonNegative(t *testing.T) {
	pts := []types.Point{
		{Lat: 0, Lng: 0},
		{Lat: -35.0, Lng: 149.0},
		{Lat: 89.9, Lng: -179.9},
		{Lat: 10.77, Lng: 106.70},
	}
	for _, a := range pts {
		for _, b := range pts {
			if d := DistanceKm(a, b); d < 0 {
				t.Errorf("DistanceKm(%v, %v) = %f, want >= 0", a, b, d)
			}
		}
	}
}
