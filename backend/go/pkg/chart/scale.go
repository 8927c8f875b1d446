package chart

import (
	"math"
)

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Linear maps a continuous domain onto a pixel range.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// NewLinear builds a linear scale.
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Map projects v. A collapsed domain maps everything to the middle of the range.
func (s Linear) Map(v float64) float64 {
	if s.D1 == s.D0 {
		return (s.R0 + s.R1) / 2
	}
	t := (v - s.D0) / (s.D1 - s.D0)
	return s.R0 + t*(s.R1-s.R0)
}

// Nice extends the domain to round bounds for roughly count ticks.
func (s Linear) Nice(count int) Linear {
	start, stop := s.D0, s.D1
	if start == stop || !isFinite(start) || !isFinite(stop) {
		return s
	}
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	var prestep float64
	for i := 0; i < 10; i++ {
		step := tickIncrement(start, stop, float64(count))
		if step == prestep {
			break
		} else if step > 0 {
			start = math.Floor(start/step) * step
			stop = math.Ceil(stop/step) * step
		} else if step < 0 {
			start = math.Ceil(start*step) / step
			stop = math.Floor(stop*step) / step
		} else {
			break
		}
		prestep = step
	}
	if reversed {
		start, stop = stop, start
	}
	s.D0, s.D1 = start, stop
	return s
}

// Ticks returns about count round values inside the domain.
func (s Linear) Ticks(count int) []float64 {
	start, stop := s.D0, s.D1
	if start == stop {
		if !isFinite(start) {
			return nil
		}
		return []float64{start}
	}
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	i1, i2, inc := tickSpec(start, stop, float64(count))
	if !(i2 >= i1) {
		return nil
	}
	n := int(i2 - i1 + 1)
	ticks := make([]float64, n)
	for i := 0; i < n; i++ {
		if inc < 0 {
			ticks[i] = (i1 + float64(i)) / -inc
		} else {
			ticks[i] = (i1 + float64(i)) * inc
		}
	}
	if reversed {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	return ticks
}

func tickFactor(errv float64) float64 {
	switch {
	case errv >= e10:
		return 10
	case errv >= e5:
		return 5
	case errv >= e2:
		return 2
	}
	return 1
}

func tickIncrement(start, stop, count float64) float64 {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	errv := step / math.Pow(10, power)
	factor := tickFactor(errv)
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}

func tickSpec(start, stop, count float64) (float64, float64, float64) {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	errv := step / math.Pow(10, power)
	factor := tickFactor(errv)
	var i1, i2, inc float64
	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = math.Round(start / inc)
		i2 = math.Round(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}
	if i2 < i1 && 0.5 <= count && count < 2 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}

// TickStep is the spacing Ticks would use for count ticks.
func (s Linear) TickStep(count int) float64 {
	start, stop := math.Min(s.D0, s.D1), math.Max(s.D0, s.D1)
	if start == stop {
		return 0
	}
	_, _, inc := tickSpec(start, stop, float64(count))
	if inc < 0 {
		return 1 / -inc
	}
	return inc
}

// Sqrt is a power scale with exponent one half, so mapped radii give areas
// proportional to the value.
type Sqrt struct {
	inner Linear
}

// NewSqrt builds a square root scale.
func NewSqrt(d0, d1, r0, r1 float64) Sqrt {
	return Sqrt{inner: NewLinear(signedSqrt(d0), signedSqrt(d1), r0, r1)}
}

// Map projects v.
func (s Sqrt) Map(v float64) float64 {
	return s.inner.Map(signedSqrt(v))
}

func signedSqrt(v float64) float64 {
	if v < 0 {
		return -math.Sqrt(-v)
	}
	return math.Sqrt(v)
}

// Band splits a range into equal padded bands, one per distinct category.
type Band struct {
	domain    []string
	index     map[string]int
	start     float64
	step      float64
	bandwidth float64
}

// NewBand builds a band scale with equal inner and outer padding.
func NewBand(domain []string, r0, r1, padding float64) Band {
	b := Band{index: make(map[string]int)}
	for _, d := range domain {
		if _, ok := b.index[d]; ok {
			continue
		}
		b.index[d] = len(b.domain)
		b.domain = append(b.domain, d)
	}
	n := float64(len(b.domain))
	b.step = (r1 - r0) / math.Max(1, n-padding+padding*2)
	b.start = r0 + (r1-r0-b.step*(n-padding))*0.5
	b.bandwidth = b.step * (1 - padding)
	return b
}

// Pos returns the left edge of a category's band.
func (b Band) Pos(key string) (float64, bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

// Bandwidth is the width of one band.
func (b Band) Bandwidth() float64 { return b.bandwidth }

// Domain is the list of distinct categories.
func (b Band) Domain() []string { return append([]string(nil), b.domain...) }

func extent(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
