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
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ncfReader reads gridded variables from an open NetCDF input file,
// whatever its on-disk format.
type ncfReader interface {
	// dims returns the dimension names and lengths of variable v, or nil
	// lengths if v is not in the file. The length of a classic record
	// dimension is 0.
	dims(v string) (names []string, lengths []int)

	// numRecords returns the length of the outermost dimension of v.
	numRecords(v string) (int, error)

	// attribute returns attribute a of variable v, or nil.
	attribute(v, a string) interface{}

	// readRecord reads the rec'th index-0 slab of v.
	readRecord(v string, rec int) (*sparse.DenseArray, error)

	// readScalarRecord reads the rec'th value of the one-dimensional v.
	readScalarRecord(v string, rec int) (float64, error)

	// readStatic reads a time-invariant field, removing leading
	// dimensions of length one.
	readStatic(v string) (*sparse.DenseArray, error)

	Close() error
}

// NetCDF format signatures.
var (
	magicCDF1 = []byte("CDF\x01")
	magicCDF2 = []byte("CDF\x02")
	magicHDF5 = []byte("\x89HDF")
)

// openNCF opens the NetCDF file at path. Classic (CDF-1 and CDF-2) files
// are read with the cdf package and NetCDF-4 (HDF5) files with the
// go-native-netcdf package.
func openNCF(path string) (ncfReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: reading file signature: %v", path, err)
	}
	switch {
	case bytes.Equal(magic, magicCDF1), bytes.Equal(magic, magicCDF2):
		ff, err := cdf.Open(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %v", path, err)
		}
		return &cdfFile{path: path, f: f, ff: ff}, nil
	case bytes.Equal(magic, magicHDF5):
		f.Close()
		return openHDF(path)
	default:
		f.Close()
		return nil, fmt.Errorf("%s: not a classic or NetCDF-4 file (signature %q)", path, magic)
	}
}

// cdfFile is an open classic NetCDF file.
type cdfFile struct {
	path string
	f    *os.File
	ff   *cdf.File
}

func (n *cdfFile) Close() error { return n.f.Close() }

func (n *cdfFile) dims(v string) ([]string, []int) {
	return n.ff.Header.Dimensions(v), n.ff.Header.Lengths(v)
}

func (n *cdfFile) attribute(v, a string) interface{} {
	return n.ff.Header.GetAttribute(v, a)
}

// numRecords returns the length of the outermost dimension of variable v.
// For record variables the header holds no length, so the number of
// complete records is calculated from the file size.
func (n *cdfFile) numRecords(v string) (int, error) {
	dims := n.ff.Header.Lengths(v)
	if len(dims) == 0 {
		return 0, fmt.Errorf("variable %s not in file", v)
	}
	if !n.ff.Header.IsRecordVariable(v) {
		return dims[0], nil
	}
	fi, err := n.f.Stat()
	if err != nil {
		return 0, err
	}
	return int(n.ff.Header.NumRecs(fi.Size())), nil
}

func (n *cdfFile) readRecord(v string, rec int) (*sparse.DenseArray, error) {
	return readRecord(n.ff, v, rec)
}

func (n *cdfFile) readScalarRecord(v string, rec int) (float64, error) {
	return readScalarRecord(n.ff, v, rec)
}

func (n *cdfFile) readStatic(v string) (*sparse.DenseArray, error) {
	return readStatic(n.ff, v)
}

// readRecord reads variable v out of netcdf file ff at the index 0 value
// specified by rec.
func readRecord(ff *cdf.File, v string, rec int) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(v)
	if len(dims) < 2 {
		return nil, fmt.Errorf("variable %s not in file or has no grid dimensions", v)
	}
	dims = dims[1:]
	vals, err := readValues(ff, v, rec, dims)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(dims...)
	copy(data.Elements, vals)
	return data, nil
}

// readScalarRecord reads the rec'th value of the one-dimensional variable v.
func readScalarRecord(ff *cdf.File, v string, rec int) (float64, error) {
	if dims := ff.Header.Lengths(v); len(dims) != 1 {
		return math.NaN(), fmt.Errorf("variable %s should have 1 dimension but has %d", v, len(dims))
	}
	vals, err := readValues(ff, v, rec, nil)
	if err != nil {
		return math.NaN(), err
	}
	return vals[0], nil
}

// readValues reads one index-0 slab of variable v, whose remaining
// dimensions are dims.
func readValues(ff *cdf.File, v string, rec int, dims []int) ([]float64, error) {
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = rec, rec+1
	r := ff.Reader(v, start, end)
	if r == nil {
		return nil, fmt.Errorf("variable %s not in file", v)
	}
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading netcdf variable %s record %d: %v", v, rec, err)
	}
	return float64s(buf, ff.Header.FillValue(v))
}

// readStatic reads a time-invariant field. Leading dimensions of length
// one, including a record dimension holding a single record, are removed.
func readStatic(ff *cdf.File, v string) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(v)
	switch {
	case len(dims) == 0:
		return nil, fmt.Errorf("variable %s not in file", v)
	case len(dims) <= 2 && !ff.Header.IsRecordVariable(v):
		n := 1
		for _, d := range dims {
			n *= d
		}
		r := ff.Reader(v, nil, nil)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("reading netcdf variable %s: %v", v, err)
		}
		vals, err := float64s(buf, ff.Header.FillValue(v))
		if err != nil {
			return nil, err
		}
		data := sparse.ZerosDense(dims...)
		copy(data.Elements, vals)
		return squeeze(data), nil
	}
	data, err := readRecord(ff, v, 0)
	if err != nil {
		return nil, err
	}
	return squeeze(data), nil
}

// squeeze removes leading dimensions of length one until data is at most
// two-dimensional.
func squeeze(data *sparse.DenseArray) *sparse.DenseArray {
	shape := data.Shape
	for len(shape) > 2 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) == len(data.Shape) {
		return data
	}
	o := sparse.ZerosDense(shape...)
	copy(o.Elements, data.Elements)
	return o
}

// float64s converts a buffer read from a NetCDF file to float64s.
// Floating point values equal to the variable's fill value are
// returned as NaN.
func float64s(buf, fill interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float32:
		fv, hasFill := fill.(float32)
		o := make([]float64, len(b))
		for i, v := range b {
			if hasFill && v == fv {
				o[i] = math.NaN()
				continue
			}
			o[i] = float64(v)
		}
		return o, nil
	case []float64:
		fv, hasFill := fill.(float64)
		o := make([]float64, len(b))
		for i, v := range b {
			if hasFill && v == fv {
				o[i] = math.NaN()
				continue
			}
			o[i] = v
		}
		return o, nil
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []uint8:
		fv, hasFill := fill.(uint8)
		o := make([]float64, len(b))
		for i, v := range b {
			if hasFill && v == fv {
				o[i] = math.NaN()
				continue
			}
			o[i] = float64(v)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported netcdf data type %T", buf)
	}
}

// writeNCF writes data to non-record variable Var in f.
func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range f.Header.Lengths(Var) {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(float32s(data.Elements))
	return err
}

// writeRecord writes vals to record rec of record variable Var in f.
// vals must be a slice of the variable's type.
func writeRecord(f *cdf.File, Var string, rec int, vals interface{}) error {
	start := make([]int, len(f.Header.Lengths(Var)))
	start[0] = rec
	w := f.Writer(Var, start, nil)
	_, err := w.Write(vals)
	return err
}

// float32s converts vals to float32, replacing NaN with the NetCDF
// default fill value.
func float32s(vals []float64) []float32 {
	o := make([]float32, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			o[i] = floatFill
			continue
		}
		o[i] = float32(v)
	}
	return o
}
