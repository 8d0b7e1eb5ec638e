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
	"math"

	"github.com/ctessum/sparse"
)

// Rain-on-snow thresholds.
const (
	// RainThreshold is 0.01 inch of hourly rain [mm].
	RainThreshold = 0.254
	// SnowThreshold is 0.1 inch of snow [mm].
	SnowThreshold = 2.54
)

// IsROS reports whether an hour with the given rain and snow amounts
// is a rain-on-snow event.
func IsROS(rain, snow float64) bool {
	return rain > RainThreshold && snow > SnowThreshold
}

// Hourly holds the rain-on-snow fields for one time step. All three
// arrays are on the (y, x) grid of the input.
type Hourly struct {
	// ROS is 1 for a rain-on-snow event, 0 for no event, and NaN
	// where the rain or snow is missing.
	ROS *sparse.DenseArray

	// Rain is rainnc - acsnow [mm].
	Rain *sparse.DenseArray

	// Snow is the input SNOW field.
	Snow *sparse.DenseArray
}

// Result is the rain-on-snow calculation for a dataset. It is evaluated
// one time step at a time as Next is called.
type Result struct {
	// Data is the (masked) dataset the result is calculated from.
	Data *Dataset

	rainnc, acsnow, snow NextData
}

// Calculate returns the hourly rain-on-snow result for d.
// Hourly rain is taken to be rainnc - acsnow at each time step; the
// accumulated fields are not differenced in time.
func Calculate(d *Dataset) *Result {
	return &Result{
		Data:   d,
		rainnc: d.Var(VarRainNC),
		acsnow: d.Var(VarAcSnow),
		snow:   d.Var(VarSnow),
	}
}

// Next returns the result for the next time step, or io.EOF if there
// are no more time steps.
func (r *Result) Next() (*Hourly, error) {
	rainnc, err := r.rainnc()
	if err != nil {
		return nil, err
	}
	acsnow, err := r.acsnow()
	if err != nil {
		return nil, err
	}
	snow, err := r.snow()
	if err != nil {
		return nil, err
	}
	return hourlyROS(rainnc, acsnow, snow), nil
}

func hourlyROS(rainnc, acsnow, snow *sparse.DenseArray) *Hourly {
	h := &Hourly{
		ROS:  sparse.ZerosDense(snow.Shape...),
		Rain: sparse.ZerosDense(snow.Shape...),
		Snow: snow,
	}
	for i, s := range snow.Elements {
		rain := rainnc.Elements[i] - acsnow.Elements[i]
		h.Rain.Elements[i] = rain
		switch {
		case math.IsNaN(rain) || math.IsNaN(s):
			h.ROS.Elements[i] = math.NaN()
		case IsROS(rain, s):
			h.ROS.Elements[i] = 1
		}
	}
	return h
}
