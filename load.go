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
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
)

// record locates one time step within the input files.
type record struct {
	file, index int
}

// Dataset is a month of gridded WRF output concatenated along the time
// dimension. Only the time coordinate is held in memory; gridded variables
// are read one time step at a time by the iterators returned by Var.
type Dataset struct {
	// Files are the input files in time order.
	Files []string

	// TimeDim, YDim and XDim are the dimension names of the input grid.
	TimeDim, YDim, XDim string

	// Ny and Nx are the number of grid cells in the South-North and
	// West-East directions.
	Ny, Nx int

	// Time holds the time coordinate for every record and TimeUnits
	// its units attribute, if any.
	Time      []float64
	TimeUnits string

	records []record
	masks   []*sparse.DenseArray
}

// FindFiles returns the files in dir that match pattern, sorted by name.
// [YEAR] and [MONTH] in dir and pattern are replaced by the four-digit year
// and the two-digit month, and environment variables are expanded. If no
// files match, the returned error wraps ErrNoInput.
func FindFiles(dir, pattern string, year int, month time.Month) ([]string, error) {
	glob := filepath.Join(expandDate(dir, year, month), expandDate(pattern, year, month))
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("ros: finding input files: %v", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("ros: %w matching %s", ErrNoInput, glob)
	}
	sort.Strings(files)
	return files, nil
}

func expandDate(s string, year int, month time.Month) string {
	s = os.ExpandEnv(s)
	s = strings.Replace(s, "[YEAR]", fmt.Sprintf("%04d", year), -1)
	return strings.Replace(s, "[MONTH]", fmt.Sprintf("%02d", int(month)), -1)
}

// LoadMonth finds the input files for the given month and loads them
// as a Dataset.
func LoadMonth(dir, pattern string, year int, month time.Month) (*Dataset, error) {
	files, err := FindFiles(dir, pattern, year, month)
	if err != nil {
		return nil, err
	}
	return Load(files)
}

// Load opens the headers of the given files, checks that they contain the
// variables in SelectVars on a common grid, and reads the time coordinate.
// Records are concatenated in the order the files are given; missing days
// are not filled in.
func Load(files []string) (*Dataset, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("ros: %w", ErrNoInput)
	}
	d := &Dataset{Files: files}
	for i, path := range files {
		f, err := openNCF(path)
		if err != nil {
			return nil, fmt.Errorf("ros: opening input file: %v", err)
		}
		err = d.addFile(i, path, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dataset) addFile(i int, path string, f ncfReader) error {
	for _, v := range append([]string{VarTime}, SelectVars...) {
		if _, l := f.dims(v); l == nil {
			return fmt.Errorf("ros: %s: variable %s not in file", path, v)
		}
	}
	dims, lengths := f.dims(VarSnow)
	if len(dims) != 3 {
		return fmt.Errorf("ros: %s: variable %s should have 3 dimensions but has %d",
			path, VarSnow, len(dims))
	}
	if i == 0 {
		d.TimeDim, d.YDim, d.XDim = dims[0], dims[1], dims[2]
		d.Ny, d.Nx = lengths[1], lengths[2]
		if units, ok := f.attribute(VarTime, "units").(string); ok {
			d.TimeUnits = units
		}
	}
	for _, v := range SelectVars {
		_, l := f.dims(v)
		if len(l) < 2 || l[len(l)-2] != d.Ny || l[len(l)-1] != d.Nx {
			return fmt.Errorf("ros: %s: variable %s has shape %v: %w with the %dx%d grid",
				path, v, l, ErrShapeMismatch, d.Ny, d.Nx)
		}
	}

	n, err := f.numRecords(VarSnow)
	if err != nil {
		return fmt.Errorf("ros: %s: %v", path, err)
	}
	for rec := 0; rec < n; rec++ {
		t, err := f.readScalarRecord(VarTime, rec)
		if err != nil {
			return fmt.Errorf("ros: %s: %v", path, err)
		}
		d.Time = append(d.Time, t)
		d.records = append(d.records, record{file: i, index: rec})
	}
	return nil
}

// NumRecords returns the number of time steps in the dataset.
func (d *Dataset) NumRecords() int { return len(d.records) }

// Var returns an iterator over the time steps of the gridded variable
// name, with all of the dataset's masks applied. Each call returns a new,
// independent iterator. Input files are opened as the iterator reaches
// them and closed when it moves on or is exhausted.
func (d *Dataset) Var(name string) NextData {
	var (
		i      int
		cur    ncfReader
		curIdx = -1
	)
	closeCur := func() {
		if cur != nil {
			cur.Close()
			cur, curIdx = nil, -1
		}
	}
	return func() (*sparse.DenseArray, error) {
		if i >= len(d.records) {
			closeCur()
			return nil, io.EOF
		}
		rec := d.records[i]
		path := d.Files[rec.file]
		if rec.file != curIdx {
			closeCur()
			f, err := openNCF(path)
			if err != nil {
				return nil, fmt.Errorf("ros: opening input file: %v", err)
			}
			cur, curIdx = f, rec.file
		}
		data, err := cur.readRecord(name, rec.index)
		if err != nil {
			closeCur()
			return nil, fmt.Errorf("ros: %s: %v", path, err)
		}
		data = squeeze(data)
		if !sameShape(data.Shape, []int{d.Ny, d.Nx}) {
			closeCur()
			return nil, fmt.Errorf("ros: %s: variable %s record %d has shape %v: %w with the %dx%d grid",
				path, name, rec.index, data.Shape, ErrShapeMismatch, d.Ny, d.Nx)
		}
		i++
		d.applyMasks(data)
		return data, nil
	}
}

// Static returns the first time step of variable name without masking.
// It is meant for coordinate fields such as XLAT and XLONG.
func (d *Dataset) Static(name string) (*sparse.DenseArray, error) {
	path := d.Files[0]
	f, err := openNCF(path)
	if err != nil {
		return nil, fmt.Errorf("ros: opening input file: %v", err)
	}
	defer f.Close()
	data, err := f.readStatic(name)
	if err != nil {
		return nil, fmt.Errorf("ros: %s: %v", path, err)
	}
	if !sameShape(data.Shape, []int{d.Ny, d.Nx}) {
		return nil, fmt.Errorf("ros: %s: variable %s has shape %v: %w with the %dx%d grid",
			path, name, data.Shape, ErrShapeMismatch, d.Ny, d.Nx)
	}
	return data, nil
}

// Where returns a copy of d in which every grid cell where keep is zero is
// missing (NaN) at every time step. keep is a two-dimensional (y, x) array
// that is broadcast along the time dimension; masks accumulate, so a
// cell is kept only if every mask keeps it. The shape of the data is never
// changed.
func (d *Dataset) Where(keep *sparse.DenseArray) (*Dataset, error) {
	if !sameShape(keep.Shape, []int{d.Ny, d.Nx}) {
		return nil, fmt.Errorf("ros: mask shape %v: %w with the %dx%d grid",
			keep.Shape, ErrShapeMismatch, d.Ny, d.Nx)
	}
	o := *d
	o.masks = make([]*sparse.DenseArray, len(d.masks), len(d.masks)+1)
	copy(o.masks, d.masks)
	o.masks = append(o.masks, keep)
	return &o, nil
}

// Kept returns a (y, x) array that is 1 where a grid cell passes all of
// the dataset's masks and 0 elsewhere.
func (d *Dataset) Kept() *sparse.DenseArray {
	o := sparse.ZerosDense(d.Ny, d.Nx)
	for i := range o.Elements {
		o.Elements[i] = 1
	}
	for _, m := range d.masks {
		for i, keep := range m.Elements {
			if keep == 0 {
				o.Elements[i] = 0
			}
		}
	}
	return o
}

func (d *Dataset) applyMasks(data *sparse.DenseArray) {
	for _, m := range d.masks {
		for i, keep := range m.Elements {
			if keep == 0 {
				data.Elements[i] = math.NaN()
			}
		}
	}
}
