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
	"math"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

// hdfFile is an open NetCDF-4 (HDF5) file.
type hdfFile struct {
	path string
	g    api.Group
}

func openHDF(path string) (*hdfFile, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return &hdfFile{path: path, g: g}, nil
}

func (h *hdfFile) Close() error {
	h.g.Close()
	return nil
}

// getter returns the variable getter for v and its shape, or nil if v is
// not in the file.
func (h *hdfFile) getter(v string) (api.VarGetter, []int) {
	vg, err := h.g.GetVarGetter(v)
	if err != nil {
		return nil, nil
	}
	shape := make([]int, len(vg.Shape()))
	for i, l := range vg.Shape() {
		shape[i] = int(l)
	}
	return vg, shape
}

func (h *hdfFile) dims(v string) ([]string, []int) {
	vg, shape := h.getter(v)
	if vg == nil {
		return nil, nil
	}
	names := vg.Dimensions()
	if len(names) != len(shape) {
		// Datasets without dimension scales have anonymous dimensions.
		names = make([]string, len(shape))
		for i := range names {
			names[i] = fmt.Sprintf("%s_dim%d", v, i)
		}
	}
	return names, shape
}

func (h *hdfFile) attribute(v, a string) interface{} {
	vg, _ := h.getter(v)
	if vg == nil || vg.Attributes() == nil {
		return nil
	}
	val, ok := vg.Attributes().Get(a)
	if !ok {
		return nil
	}
	return val
}

func (h *hdfFile) numRecords(v string) (int, error) {
	vg, shape := h.getter(v)
	if vg == nil || len(shape) == 0 {
		return 0, fmt.Errorf("variable %s not in file", v)
	}
	return shape[0], nil
}

func (h *hdfFile) readRecord(v string, rec int) (*sparse.DenseArray, error) {
	vg, shape := h.getter(v)
	if len(shape) < 2 {
		return nil, fmt.Errorf("variable %s not in file or has no grid dimensions", v)
	}
	vals, err := h.slab(vg, v, rec)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(shape[1:]...)
	if len(vals) != len(data.Elements) {
		return nil, fmt.Errorf("variable %s record %d has %d values but should have %d",
			v, rec, len(vals), len(data.Elements))
	}
	copy(data.Elements, vals)
	return data, nil
}

func (h *hdfFile) readScalarRecord(v string, rec int) (float64, error) {
	vg, shape := h.getter(v)
	if len(shape) != 1 {
		return math.NaN(), fmt.Errorf("variable %s should have 1 dimension but has %d", v, len(shape))
	}
	vals, err := h.slab(vg, v, rec)
	if err != nil {
		return math.NaN(), err
	}
	if len(vals) != 1 {
		return math.NaN(), fmt.Errorf("variable %s record %d has %d values", v, rec, len(vals))
	}
	return vals[0], nil
}

func (h *hdfFile) readStatic(v string) (*sparse.DenseArray, error) {
	vg, shape := h.getter(v)
	switch {
	case vg == nil || len(shape) == 0:
		return nil, fmt.Errorf("variable %s not in file", v)
	case len(shape) <= 2:
		buf, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("reading netcdf variable %s: %v", v, err)
		}
		vals, err := hdfFloat64s(buf, h.fillValue(vg))
		if err != nil {
			return nil, fmt.Errorf("reading netcdf variable %s: %v", v, err)
		}
		data := sparse.ZerosDense(shape...)
		if len(vals) != len(data.Elements) {
			return nil, fmt.Errorf("variable %s has %d values but should have %d",
				v, len(vals), len(data.Elements))
		}
		copy(data.Elements, vals)
		return squeeze(data), nil
	}
	data, err := h.readRecord(v, 0)
	if err != nil {
		return nil, err
	}
	return squeeze(data), nil
}

// slab reads the rec'th index-0 slab of v as float64s.
func (h *hdfFile) slab(vg api.VarGetter, v string, rec int) ([]float64, error) {
	buf, err := vg.GetSlice(int64(rec), int64(rec+1))
	if err != nil {
		return nil, fmt.Errorf("reading netcdf variable %s record %d: %v", v, rec, err)
	}
	vals, err := hdfFloat64s(buf, h.fillValue(vg))
	if err != nil {
		return nil, fmt.Errorf("reading netcdf variable %s record %d: %v", v, rec, err)
	}
	return vals, nil
}

// fillValue returns the _FillValue attribute of a variable, or nil.
func (h *hdfFile) fillValue(vg api.VarGetter) interface{} {
	if vg.Attributes() == nil {
		return nil
	}
	fv, ok := vg.Attributes().Get("_FillValue")
	if !ok {
		return nil
	}
	return fv
}

// hdfFloat64s flattens the nested slices returned by the HDF5 reader into
// row-major float64s. Values equal to fill are returned as NaN. Without a
// fill attribute, floating point values equal to the NetCDF default fill
// value are returned as NaN.
func hdfFloat64s(buf, fill interface{}) ([]float64, error) {
	var o []float64
	var kind reflect.Kind
	var walk func(v reflect.Value) error
	walk = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				if err := walk(v.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			kind = v.Kind()
			o = append(o, v.Float())
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			kind = v.Kind()
			o = append(o, float64(v.Int()))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			kind = v.Kind()
			o = append(o, float64(v.Uint()))
		default:
			return fmt.Errorf("unsupported netcdf data type %s", v.Type())
		}
		return nil
	}
	if err := walk(reflect.ValueOf(buf)); err != nil {
		return nil, err
	}

	fv, hasFill := scalarValue(fill)
	if !hasFill {
		switch kind {
		case reflect.Float32:
			fv, hasFill = float64(floatFill), true
		case reflect.Float64:
			fv, hasFill = doubleFill, true
		}
	}
	if hasFill {
		for i, v := range o {
			if v == fv {
				o[i] = math.NaN()
			}
		}
	}
	return o, nil
}

// scalarValue returns the numeric value of an attribute that holds either
// a single number or a slice of numbers, in which case the first is used.
func scalarValue(a interface{}) (float64, bool) {
	if a == nil {
		return 0, false
	}
	v := reflect.ValueOf(a)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if v.Len() == 0 {
			return 0, false
		}
		v = v.Index(0)
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	}
	return 0, false
}
