package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinear_Nice(t *testing.T) {
	tests := []struct {
		d0, d1       float64
		want0, want1 float64
	}{
		{0, 97, 0, 100},
		{0.2, 9.6, 0, 10},
		{-13, 42, -15, 45},
		{0, 0.97, 0, 1},
		{5, 5, 5, 5},
	}
	for _, tt := range tests {
		got := NewLinear(tt.d0, tt.d1, 0, 100).Nice(10)
		assert.InDelta(t, tt.want0, got.D0, 1e-9, "nice(%v,%v) lower", tt.d0, tt.d1)
		assert.InDelta(t, tt.want1, got.D1, 1e-9, "nice(%v,%v) upper", tt.d0, tt.d1)
	}
}

func TestLinear_Ticks(t *testing.T) {
	s := NewLinear(0, 100, 300, 0)
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, s.Ticks(10))
	assert.Equal(t, 10.0, s.TickStep(10))
	assert.Equal(t, []float64{0, 0.5, 1}, NewLinear(0, 1, 0, 1).Ticks(2))
	assert.Equal(t, []float64{3}, NewLinear(3, 3, 0, 1).Ticks(10))
}

func TestLinear_MapCollapsedDomain(t *testing.T) {
	s := NewLinear(4, 4, 0, 200)
	assert.Equal(t, 100.0, s.Map(4))
	assert.Equal(t, 300.0, NewLinear(0, 10, 300, 0).Map(0))
}

func TestBand(t *testing.T) {
	b := NewBand([]string{"a", "b", "a", "c"}, 0, 310, 0.1)
	assert.Equal(t, []string{"a", "b", "c"}, b.Domain())
	// step = 310 / (3 - 0.1 + 0.2) = 100
	assert.InDelta(t, 90, b.Bandwidth(), 1e-9)
	pos, ok := b.Pos("a")
	assert.True(t, ok)
	assert.InDelta(t, 10, pos, 1e-9)
	pos, _ = b.Pos("c")
	assert.InDelta(t, 210, pos, 1e-9)
	_, ok = b.Pos("zzz")
	assert.False(t, ok)
}

func TestSqrt(t *testing.T) {
	s := NewSqrt(0, 100, 4, 30)
	assert.Equal(t, 4.0, s.Map(0))
	assert.InDelta(t, 4+26*0.5, s.Map(25), 1e-9)
	assert.Equal(t, 30.0, s.Map(100))
}

func TestPalettes(t *testing.T) {
	assert.Equal(t, "#1f77b4", Palette("")[0])
	assert.Equal(t, "#4e79a7", Palette("schemeTableau10")[0])

	o := NewOrdinal(Palette("category10"), "x", "y")
	assert.Equal(t, "#ff7f0e", o.Color("y"))
	assert.Equal(t, "#2ca02c", o.Color("new"))
	assert.Equal(t, "#1f77b4", o.Color("x"))

	seq := NewSequential("interpolateBlues", 0, 10)
	assert.Equal(t, "#f7fbff", seq.Color(0))
	assert.Equal(t, "#08306b", seq.Color(10))
	assert.Equal(t, "#08306b", seq.Color(50), "values past the domain are clamped")
	assert.Equal(t, seq.At(0.5), NewSequential("unknown", 0, 1).At(0.5))
}
