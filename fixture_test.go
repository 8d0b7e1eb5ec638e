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
	"os"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

const testTimeUnits = "minutes since 2021-12-01 00:00:00"

// wrfRecord is one time step of a test input file. Gridded fields are
// in row-major (y, x) order.
type wrfRecord struct {
	time float64

	t2, snow, acsnow, rainnc []float64
}

// writeWRF writes a small file with the layout of the downscaled WRF
// output to dir/name and returns its path.
func writeWRF(t *testing.T, dir, name string, ny, nx int, recs []wrfRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	h := cdf.NewHeader([]string{"Time", "south_north", "west_east"}, []int{0, ny, nx})
	h.AddVariable(VarTime, []string{"Time"}, []float64{0})
	h.AddAttribute(VarTime, "units", testTimeUnits)
	grid := []string{"Time", "south_north", "west_east"}
	for _, v := range SelectVars {
		h.AddVariable(v, grid, []float32{0})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	lat, lon := make([]float64, ny*nx), make([]float64, ny*nx)
	for i := range lat {
		lat[i] = 60 + float64(i/nx)
		lon[i] = -150 + float64(i%nx)
	}
	for i, r := range recs {
		if err := ff.FillRecord(i); err != nil {
			t.Fatal(err)
		}
		if err := writeRecord(ff, VarTime, i, []float64{r.time}); err != nil {
			t.Fatal(err)
		}
		for v, vals := range map[string][]float64{
			VarT2: r.t2, VarSnow: r.snow, VarAcSnow: r.acsnow, VarRainNC: r.rainnc,
			VarXLat: lat, VarXLong: lon,
		} {
			if vals == nil {
				vals = make([]float64, ny*nx)
			}
			if err := writeRecord(ff, v, i, float32s(vals)); err != nil {
				t.Fatalf("writing %s: %v", v, err)
			}
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeWRF4 is like writeWRF but writes a NetCDF-4 (HDF5) file.
func writeWRF4(t *testing.T, dir, name string, ny, nx int, recs []wrfRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := netcdf.OpenWriter(path, netcdf.KindHDF5)
	if err != nil {
		t.Fatal(err)
	}
	lat, lon := make([]float64, ny*nx), make([]float64, ny*nx)
	for i := range lat {
		lat[i] = 60 + float64(i/nx)
		lon[i] = -150 + float64(i%nx)
	}
	times := make([]float64, len(recs))
	fields := make(map[string][][][]float32)
	for i, r := range recs {
		times[i] = r.time
		for v, vals := range map[string][]float64{
			VarT2: r.t2, VarSnow: r.snow, VarAcSnow: r.acsnow, VarRainNC: r.rainnc,
			VarXLat: lat, VarXLong: lon,
		} {
			if vals == nil {
				vals = make([]float64, ny*nx)
			}
			g := make([][]float32, ny)
			for y := range g {
				g[y] = float32s(vals[y*nx : (y+1)*nx])
			}
			fields[v] = append(fields[v], g)
		}
	}

	units, err := util.NewOrderedMap([]string{"units"}, map[string]any{"units": testTimeUnits})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddVar(VarTime, api.Variable{
		Values:     times,
		Dimensions: []string{"Time"},
		Attributes: units,
	}); err != nil {
		t.Fatal(err)
	}
	for _, v := range SelectVars {
		if err := w.AddVar(v, api.Variable{
			Values:     fields[v],
			Dimensions: []string{"Time", "south_north", "west_east"},
		}); err != nil {
			t.Fatalf("writing %s: %v", v, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeGeography writes a geo_em style file holding the given (y, x)
// fields, each with a single time step.
func writeGeography(t *testing.T, dir string, ny, nx int, fields map[string][]float64) string {
	t.Helper()
	path := filepath.Join(dir, "geo_em.d02.nc")
	h := cdf.NewHeader([]string{"Time", "south_north", "west_east"}, []int{0, ny, nx})
	for v := range fields {
		h.AddVariable(v, []string{"Time", "south_north", "west_east"}, []float32{0})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	if err := ff.FillRecord(0); err != nil {
		t.Fatal(err)
	}
	for v, vals := range fields {
		if err := writeRecord(ff, v, 0, float32s(vals)); err != nil {
			t.Fatalf("writing %s: %v", v, err)
		}
	}
	return path
}

func fill(n int, v float64) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = v
	}
	return o
}

// arrayOf returns an array holding vals. Without a shape it is
// one-dimensional.
func arrayOf(vals []float64, shape ...int) *sparse.DenseArray {
	if len(shape) == 0 {
		shape = []int{len(vals)}
	}
	a := sparse.ZerosDense(shape...)
	copy(a.Elements, vals)
	return a
}
