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
	"fmt"

	"github.com/ctessum/sparse"
)

// Geography holds the static fields of a WRF geo_em file that are used
// for masking.
type Geography struct {
	// LandMask is 1 for land and 0 for water.
	LandMask *sparse.DenseArray

	// LUIndex is the USGS land use category.
	LUIndex *sparse.DenseArray
}

// LoadGeography reads the land mask and land use index from the
// WRF geography file at path. Any degenerate time dimension is removed,
// so both fields are (y, x) arrays. If the file or either variable
// cannot be read, the returned error wraps ErrMissingReference.
func LoadGeography(path string) (*Geography, error) {
	f, err := openNCF(path)
	if err != nil {
		return nil, fmt.Errorf("ros: geography file: %w: %v", ErrMissingReference, err)
	}
	defer f.Close()

	g := new(Geography)
	if g.LandMask, err = readGeoVar(path, f, VarLandMask); err != nil {
		return nil, err
	}
	if g.LUIndex, err = readGeoVar(path, f, VarLUIndex); err != nil {
		return nil, err
	}
	if !sameShape(g.LandMask.Shape, g.LUIndex.Shape) {
		return nil, fmt.Errorf("ros: %s: %s shape %v: %w with %s shape %v", path,
			VarLandMask, g.LandMask.Shape, ErrShapeMismatch, VarLUIndex, g.LUIndex.Shape)
	}
	return g, nil
}

func readGeoVar(path string, f ncfReader, v string) (*sparse.DenseArray, error) {
	if _, l := f.dims(v); l == nil {
		return nil, fmt.Errorf("ros: %s: variable %s: %w", path, v, ErrMissingReference)
	}
	data, err := f.readStatic(v)
	if err != nil {
		return nil, fmt.Errorf("ros: %s: %w: %v", path, ErrMissingReference, err)
	}
	if len(data.Shape) != 2 {
		return nil, fmt.Errorf("ros: %s: variable %s has shape %v after removing time: %w",
			path, v, data.Shape, ErrShapeMismatch)
	}
	return data, nil
}

// Apply masks d in two steps: first every cell that is not land
// (LANDMASK != 1) is removed, then every remaining cell classified as
// water (LU_INDEX == 17). Removed cells are missing at every time step.
func (g *Geography) Apply(d *Dataset) (*Dataset, error) {
	land, err := d.Where(equalMask(g.LandMask, LandValue))
	if err != nil {
		return nil, err
	}
	return land.Where(notEqualMask(g.LUIndex, OceanIndex))
}

// equalMask returns an array that is 1 where a equals v and 0 elsewhere.
func equalMask(a *sparse.DenseArray, v float64) *sparse.DenseArray {
	o := sparse.ZerosDense(a.Shape...)
	for i, e := range a.Elements {
		if e == v {
			o.Elements[i] = 1
		}
	}
	return o
}

// notEqualMask returns an array that is 1 where a does not equal v
// and 0 elsewhere. Missing values are not equal to v.
func notEqualMask(a *sparse.DenseArray, v float64) *sparse.DenseArray {
	o := sparse.ZerosDense(a.Shape...)
	for i, e := range a.Elements {
		if e != v {
			o.Elements[i] = 1
		}
	}
	return o
}
