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

// Package ros extracts hourly rain-on-snow events from downscaled WRF
// output. The pipeline loads a month of per-day files as a lazily read
// dataset, masks out non-land and ocean cells using the WRF geography
// file, applies a rain and snow depth threshold to each cell and hour, and
// writes the result to a compressed netCDF file.
package ros

import (
	"errors"

	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "1.0.0"

// WRF variable names read by the pipeline.
const (
	VarTime   = "Time"
	VarT2     = "T2"     // 2 m temperature [K]
	VarSnow   = "SNOW"   // snow on the ground [kg m-2]
	VarAcSnow = "acsnow" // accumulated snow water equivalent [mm]
	VarRainNC = "rainnc" // accumulated total grid scale precipitation [mm]
	VarXLat   = "XLAT"
	VarXLong  = "XLONG"
)

// SelectVars are the gridded variables kept from each input file.
var SelectVars = []string{VarT2, VarSnow, VarAcSnow, VarRainNC, VarXLat, VarXLong}

// Geography variable names and sentinel values.
const (
	VarLandMask = "LANDMASK"
	VarLUIndex  = "LU_INDEX"

	// LandValue is the LANDMASK value of land cells.
	LandValue = 1
	// OceanIndex is the USGS land use category for water bodies.
	OceanIndex = 17
)

// Output variable names.
const (
	OutROS  = "ROS_hourly"
	OutRain = "RAIN"
	OutSnow = "SNOW"
)

var (
	// ErrNoInput is returned when no input files match the requested month.
	ErrNoInput = errors.New("no input files found")

	// ErrMissingReference is returned when the geography file or one of
	// its variables cannot be read.
	ErrMissingReference = errors.New("missing reference data")

	// ErrShapeMismatch is returned when two grids that must line up do not.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// NextData is a type of function that returns data for the next time step.
// If there are no more time steps, it should return the io.EOF error.
type NextData func() (*sparse.DenseArray, error)

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
