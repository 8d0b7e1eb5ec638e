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
	"os"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/floats"
)

// Summary holds statistics about a rain-on-snow run.
type Summary struct {
	// InputFiles is the number of input files read.
	InputFiles int

	// Records is the number of time steps written.
	Records int

	// Ny and Nx are the grid dimensions.
	Ny, Nx int

	// MaskedCells is the number of grid cells removed by the land and
	// ocean masks.
	MaskedCells int

	// ROSEvents is the number of cell-hours with a rain-on-snow event.
	ROSEvents int

	// ROSHours is the number of time steps with at least one event.
	ROSHours int

	// MaxRain is the largest hourly rain in any retained cell [mm].
	MaxRain float64

	// Output is the path of the output file.
	Output string
}

func newSummary(d *Dataset, output string) *Summary {
	return &Summary{
		InputFiles:  len(d.Files),
		Ny:          d.Ny,
		Nx:          d.Nx,
		MaskedCells: d.Ny*d.Nx - int(floats.Sum(d.Kept().Elements)),
		Output:      output,
	}
}

// add includes time step h in the summary.
func (s *Summary) add(h *Hourly) {
	s.Records++
	n := floats.Count(func(v float64) bool { return v == 1 }, h.ROS.Elements)
	s.ROSEvents += n
	if n > 0 {
		s.ROSHours++
	}
	for _, v := range h.Rain.Elements {
		if !math.IsNaN(v) && v > s.MaxRain {
			s.MaxRain = v
		}
	}
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d files, %d time steps on a %dx%d grid, %d cells masked, "+
		"%d rain-on-snow events in %d hours, maximum hourly rain %.3g mm",
		s.InputFiles, s.Records, s.Ny, s.Nx, s.MaskedCells, s.ROSEvents, s.ROSHours, s.MaxRain)
}

// WriteTOML writes s to path in TOML format.
func (s *Summary) WriteTOML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ros: writing summary: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("ros: writing summary: %w", err)
	}
	return f.Close()
}
