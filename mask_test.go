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
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadGeography(t *testing.T) {
	dir := t.TempDir()
	path := writeGeography(t, dir, 2, 2, map[string][]float64{
		VarLandMask: {1, 0, 1, 1},
		VarLUIndex:  {5, 16, 17, 5},
	})
	g, err := LoadGeography(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.LandMask.Shape, []int{2, 2}) {
		t.Errorf("shape: have %v, want [2 2]", g.LandMask.Shape)
	}
	if want := []float64{5, 16, 17, 5}; !reflect.DeepEqual(g.LUIndex.Elements, want) {
		t.Errorf("LU_INDEX: have %v, want %v", g.LUIndex.Elements, want)
	}
}

func TestLoadGeographyMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadGeography(filepath.Join(dir, "geo_em.d02.nc")); !errors.Is(err, ErrMissingReference) {
		t.Errorf("missing file: have error %v, want %v", err, ErrMissingReference)
	}
	path := writeGeography(t, dir, 2, 2, map[string][]float64{
		VarLandMask: {1, 1, 1, 1},
	})
	if _, err := LoadGeography(path); !errors.Is(err, ErrMissingReference) {
		t.Errorf("missing variable: have error %v, want %v", err, ErrMissingReference)
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	data := writeWRF(t, dir, "a.nc", 2, 2, []wrfRecord{
		{time: 0, snow: []float64{1, 2, 3, 4}},
	})
	geo := writeGeography(t, dir, 2, 2, map[string][]float64{
		VarLandMask: {1, 0, 1, 1},
		VarLUIndex:  {5, 5, 17, 16},
	})
	d, err := Load([]string{data})
	if err != nil {
		t.Fatal(err)
	}
	g, err := LoadGeography(geo)
	if err != nil {
		t.Fatal(err)
	}
	masked, err := g.Apply(d)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 0, 0, 1}; !reflect.DeepEqual(masked.Kept().Elements, want) {
		t.Errorf("kept: have %v, want %v", masked.Kept().Elements, want)
	}
	snow, err := masked.Var(VarSnow)()
	if err != nil {
		t.Fatal(err)
	}
	if snow.Elements[0] != 1 || snow.Elements[3] != 4 ||
		!math.IsNaN(snow.Elements[1]) || !math.IsNaN(snow.Elements[2]) {
		t.Errorf("have %v, want [1 NaN NaN 4]", snow.Elements)
	}
}

func TestApplyShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	data := writeWRF(t, dir, "a.nc", 2, 2, []wrfRecord{{time: 0}})
	geo := writeGeography(t, dir, 3, 3, map[string][]float64{
		VarLandMask: fill(9, 1),
		VarLUIndex:  fill(9, 5),
	})
	d, err := Load([]string{data})
	if err != nil {
		t.Fatal(err)
	}
	g, err := LoadGeography(geo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Apply(d); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("have error %v, want %v", err, ErrShapeMismatch)
	}
}

func TestMaskMissingValues(t *testing.T) {
	lu := fill(2, 17)
	lu[1] = math.NaN()
	a := equalMask(arrayOf(lu), OceanIndex)
	if want := []float64{1, 0}; !reflect.DeepEqual(a.Elements, want) {
		t.Errorf("equal: have %v, want %v", a.Elements, want)
	}
	b := notEqualMask(arrayOf(lu), OceanIndex)
	if want := []float64{0, 1}; !reflect.DeepEqual(b.Elements, want) {
		t.Errorf("not equal: have %v, want %v", b.Elements, want)
	}
}
