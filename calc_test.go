/*
Copyright © 2022 the rainonsnow authors.
This file is part of rainonsnow.

rainonsnow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

rainonsnow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with rainonsnow.  If not, see <http://www.gnu.org/licenses/>.
*/

package ros

import (
	"io"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestIsROS(t *testing.T) {
	for _, test := range []struct {
		rain, snow float64
		want       bool
	}{
		{rain: 1, snow: 5, want: true},
		{rain: 0.255, snow: 2.55, want: true},
		{rain: RainThreshold, snow: 5, want: false},
		{rain: 1, snow: SnowThreshold, want: false},
		{rain: 0, snow: 5, want: false},
		{rain: 1, snow: 0, want: false},
		{rain: -1, snow: 5, want: false},
		{rain: math.NaN(), snow: 5, want: false},
		{rain: 1, snow: math.NaN(), want: false},
	} {
		if have := IsROS(test.rain, test.snow); have != test.want {
			t.Errorf("IsROS(%g, %g): have %v, want %v", test.rain, test.snow, have, test.want)
		}
	}
}

func TestHourlyROS(t *testing.T) {
	nan := math.NaN()
	rainnc := arrayOf([]float64{1.5, 0.3, 2, nan, 4}, 1, 5)
	acsnow := arrayOf([]float64{0.5, 0.1, 0, nan, 1}, 1, 5)
	snow := arrayOf([]float64{5, 10, 2.54, nan, nan}, 1, 5)
	h := hourlyROS(rainnc, acsnow, snow)

	wantRain := []float64{1, 0.2, 2, nan, 3}
	for i, v := range h.Rain.Elements {
		w := wantRain[i]
		if math.IsNaN(w) != math.IsNaN(v) || (!math.IsNaN(w) && !scalar.EqualWithinAbsOrRel(v, w, 1e-12, 1e-12)) {
			t.Errorf("rain %d: have %g, want %g", i, v, w)
		}
	}
	wantROS := []float64{1, 0, 0, nan, nan}
	for i, v := range h.ROS.Elements {
		w := wantROS[i]
		if math.IsNaN(w) != math.IsNaN(v) || (!math.IsNaN(w) && v != w) {
			t.Errorf("ros %d: have %g, want %g", i, v, w)
		}
	}
	if h.Snow != snow {
		t.Errorf("snow should be passed through")
	}
}

func TestCalculate(t *testing.T) {
	dir := t.TempDir()
	path := writeWRF(t, dir, "a.nc", 1, 2, []wrfRecord{
		{time: 0, rainnc: []float64{1.5, 0.5}, acsnow: []float64{0.5, 0.25}, snow: []float64{5, 5}},
		{time: 60, rainnc: []float64{0, 3}, acsnow: []float64{0, 0}, snow: []float64{5, 1}},
	})
	d, err := Load([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	r := Calculate(d)
	want := [][]float64{{1, 0}, {0, 0}}
	for i := range want {
		h, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !floats.Equal(h.ROS.Elements, want[i]) {
			t.Errorf("time step %d: have %v, want %v", i, h.ROS.Elements, want[i])
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("have %v, want io.EOF", err)
	}
}
