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

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/klauspost/compress/gzip"
)

// DefaultCompressionLevel is the deflate level used for output files.
const DefaultCompressionLevel = 5

const (
	// floatFill and doubleFill are the NetCDF default fill values for
	// FLOAT and DOUBLE variables.
	floatFill  = float32(9.9692099683868690e+36)
	doubleFill = 9.9692099683868690e+36

	// rosFill marks missing ROS_hourly values.
	rosFill uint8 = 255
)

// Write calculates every time step of r and writes it to path as a
// deflate-compressed (gzip) NetCDF classic file, replacing any existing
// file. The uncompressed file is staged in a temporary file next to path.
// level is the deflate compression level. Write returns a summary of the
// events that were written.
func (r *Result) Write(path string, level int) (*Summary, error) {
	d := r.Data
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ros-*.nc")
	if err != nil {
		return nil, fmt.Errorf("ros: writing output: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	f, err := cdf.Create(tmp, r.header())
	if err != nil {
		return nil, fmt.Errorf("ros: writing output header: %w", err)
	}
	for _, v := range []string{VarXLat, VarXLong} {
		data, err := d.Static(v)
		if err != nil {
			return nil, err
		}
		if err := writeNCF(f, v, data); err != nil {
			return nil, fmt.Errorf("ros: writing variable %s to netcdf file: %w", v, err)
		}
	}

	s := newSummary(d, path)
	for t := 0; ; t++ {
		h, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if err := r.writeHour(f, t, h); err != nil {
			return nil, fmt.Errorf("ros: writing time step %d to netcdf file: %w", t, err)
		}
		s.add(h)
	}
	if err := cdf.UpdateNumRecs(tmp); err != nil {
		return nil, fmt.Errorf("ros: writing output: %w", err)
	}
	if err := compress(tmp, path, level); err != nil {
		return nil, fmt.Errorf("ros: compressing output: %w", err)
	}
	return s, nil
}

func (r *Result) header() *cdf.Header {
	d := r.Data
	h := cdf.NewHeader([]string{d.TimeDim, d.YDim, d.XDim}, []int{0, d.Ny, d.Nx})
	h.AddAttribute("", "comment", "Hourly rain-on-snow events")
	h.AddAttribute("", "rain_threshold", []float64{RainThreshold})
	h.AddAttribute("", "snow_threshold", []float64{SnowThreshold})
	h.AddAttribute("", "num_source_files", []int32{int32(len(d.Files))})

	h.AddVariable(VarTime, []string{d.TimeDim}, []float64{0})
	if d.TimeUnits != "" {
		h.AddAttribute(VarTime, "units", d.TimeUnits)
	}

	grid := []string{d.YDim, d.XDim}
	h.AddVariable(VarXLat, grid, []float32{0})
	h.AddAttribute(VarXLat, "description", "latitude, south is negative")
	h.AddAttribute(VarXLat, "units", "degree_north")
	h.AddVariable(VarXLong, grid, []float32{0})
	h.AddAttribute(VarXLong, "description", "longitude, west is negative")
	h.AddAttribute(VarXLong, "units", "degree_east")

	dims := []string{d.TimeDim, d.YDim, d.XDim}
	h.AddVariable(OutROS, dims, []uint8{0})
	h.AddAttribute(OutROS, "description", "1 where hourly rain > 0.254 mm and snow > 2.54 mm")
	h.AddAttribute(OutROS, "_FillValue", []uint8{rosFill})
	h.AddVariable(OutRain, dims, []float32{0})
	h.AddAttribute(OutRain, "description", "hourly rain, rainnc - acsnow")
	h.AddAttribute(OutRain, "units", "mm")
	h.AddAttribute(OutRain, "_FillValue", []float32{floatFill})
	h.AddVariable(OutSnow, dims, []float32{0})
	h.AddAttribute(OutSnow, "description", "snow on the ground")
	h.AddAttribute(OutSnow, "units", "mm")
	h.AddAttribute(OutSnow, "_FillValue", []float32{floatFill})
	h.Define()
	return h
}

// writeHour writes time step t. The record is filled first so that the
// padding of every record variable is on disk and the record count can be
// recovered from the file size.
func (r *Result) writeHour(f *cdf.File, t int, h *Hourly) error {
	if err := f.FillRecord(t); err != nil {
		return err
	}
	if err := writeRecord(f, VarTime, t, []float64{r.Data.Time[t]}); err != nil {
		return err
	}
	ros := make([]uint8, len(h.ROS.Elements))
	for i, v := range h.ROS.Elements {
		switch {
		case math.IsNaN(v):
			ros[i] = rosFill
		case v != 0:
			ros[i] = 1
		}
	}
	if err := writeRecord(f, OutROS, t, ros); err != nil {
		return err
	}
	if err := writeRecord(f, OutRain, t, float32s(h.Rain.Elements)); err != nil {
		return err
	}
	return writeRecord(f, OutSnow, t, float32s(h.Snow.Elements))
}

// compress deflates the contents of src into path. An existing file at
// path is only replaced once the compressed file is complete.
func compress(src *os.File, path string, level int) (err error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	out, err := os.CreateTemp(filepath.Dir(path), ".ros-*.gz")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(out.Name())
		}
	}()
	gz, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return err
	}
	gz.Name = filepath.Base(path)
	if _, err = io.Copy(gz, src); err != nil {
		return err
	}
	if err = gz.Close(); err != nil {
		return err
	}
	if err = out.Chmod(0644); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(out.Name(), path)
}

// Output is the content of a file written by Result.Write.
// Missing values are NaN.
type Output struct {
	Time      []float64
	TimeUnits string

	// XLat and XLong are (y, x) arrays.
	XLat, XLong *sparse.DenseArray

	// ROS, Rain, and Snow are (time, y, x) arrays.
	ROS, Rain, Snow *sparse.DenseArray
}

// ReadOutput reads a file written by Result.Write.
func ReadOutput(path string) (*Output, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ros: reading output: %w", err)
	}
	defer in.Close()
	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("ros: reading output %s: %w", path, err)
	}
	defer gz.Close()

	tmp, err := os.CreateTemp("", "ros-*.nc")
	if err != nil {
		return nil, fmt.Errorf("ros: reading output: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, gz); err != nil {
		return nil, fmt.Errorf("ros: decompressing output %s: %w", path, err)
	}
	ff, err := cdf.Open(tmp)
	if err != nil {
		return nil, fmt.Errorf("ros: reading output %s: %w", path, err)
	}
	f := &cdfFile{path: path, f: tmp, ff: ff}

	nt, err := f.numRecords(OutROS)
	if err != nil {
		return nil, fmt.Errorf("ros: reading output %s: %v", path, err)
	}
	o := new(Output)
	if units, ok := ff.Header.GetAttribute(VarTime, "units").(string); ok {
		o.TimeUnits = units
	}
	if o.XLat, err = readStatic(ff, VarXLat); err != nil {
		return nil, fmt.Errorf("ros: reading output %s: %v", path, err)
	}
	if o.XLong, err = readStatic(ff, VarXLong); err != nil {
		return nil, fmt.Errorf("ros: reading output %s: %v", path, err)
	}
	ny, nx := o.XLat.Shape[0], o.XLat.Shape[1]
	o.ROS = sparse.ZerosDense(nt, ny, nx)
	o.Rain = sparse.ZerosDense(nt, ny, nx)
	o.Snow = sparse.ZerosDense(nt, ny, nx)
	for t := 0; t < nt; t++ {
		tv, err := readScalarRecord(ff, VarTime, t)
		if err != nil {
			return nil, fmt.Errorf("ros: reading output %s: %v", path, err)
		}
		o.Time = append(o.Time, tv)
		for v, dst := range map[string]*sparse.DenseArray{OutROS: o.ROS, OutRain: o.Rain, OutSnow: o.Snow} {
			data, err := readRecord(ff, v, t)
			if err != nil {
				return nil, fmt.Errorf("ros: reading output %s: %v", path, err)
			}
			copy(dst.Elements[t*ny*nx:(t+1)*ny*nx], data.Elements)
		}
	}
	return o, nil
}
