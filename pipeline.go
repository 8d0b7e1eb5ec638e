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
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the settings for a rain-on-snow run.
type Config struct {
	// Year and Month select the input files.
	Year  int
	Month time.Month

	// InputDir is the directory holding the per-day WRF files and
	// InputPattern is the glob their names match. Both may contain
	// [YEAR], [MONTH] and environment variables.
	InputDir, InputPattern string

	// GeographyFile is the path to the WRF geo_em file holding
	// LANDMASK and LU_INDEX.
	GeographyFile string

	// OutputFile is the path the compressed result is written to.
	OutputFile string

	// CompressionLevel is the deflate level of the output, 1-9.
	CompressionLevel int

	// SummaryFile, if not empty, is where a TOML run summary is written.
	SummaryFile string
}

// DefaultConfig returns the configuration for the December 2021 Alaska run.
func DefaultConfig() Config {
	return Config{
		Year:             2021,
		Month:            time.December,
		InputDir:         "/import/beegfs/CMIP6/wrf_era5/04km/[YEAR]",
		InputPattern:     "era5_wrf_dscale_4km_[YEAR]-[MONTH]-*.nc",
		GeographyFile:    "/import/beegfs/CMIP6/wrf_era5/geo_em.d02.nc",
		OutputFile:       "/center1/DYNDOWN/phutton5/ROS/All_of_AK/ROS_Dec2021_hourly.nc.gz",
		CompressionLevel: DefaultCompressionLevel,
	}
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	switch {
	case c.Year <= 0:
		return fmt.Errorf("ros: invalid year %d", c.Year)
	case c.Month < time.January || c.Month > time.December:
		return fmt.Errorf("ros: invalid month %d", c.Month)
	case c.CompressionLevel < 1 || c.CompressionLevel > 9:
		return fmt.Errorf("ros: invalid compression level %d", c.CompressionLevel)
	case c.OutputFile == "":
		return fmt.Errorf("ros: no output file specified")
	}
	return nil
}

// Run loads the input for the configured month, masks it, calculates
// hourly rain-on-snow events and writes them to cfg.OutputFile.
// Progress is reported to log.
func Run(cfg Config, log logrus.FieldLogger) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log.WithFields(logrus.Fields{
		"year":  cfg.Year,
		"month": cfg.Month,
	}).Info("Starting ROS extraction")

	log.Info("Loading dataset...")
	t := time.Now()
	d, err := LoadMonth(cfg.InputDir, cfg.InputPattern, cfg.Year, cfg.Month)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"files":   len(d.Files),
		"records": d.NumRecords(),
		"grid":    fmt.Sprintf("%dx%d", d.Ny, d.Nx),
		"minutes": time.Since(t).Minutes(),
	}).Info("Dataset loaded")

	t = time.Now()
	g, err := LoadGeography(cfg.GeographyFile)
	if err != nil {
		return nil, err
	}
	d, err = g.Apply(d)
	if err != nil {
		return nil, err
	}
	log.WithField("minutes", time.Since(t).Minutes()).Info("Land and ocean mask applied")

	log.Info("Calculating hourly rain-on-snow events...")
	t = time.Now()
	s, err := Calculate(d).Write(cfg.OutputFile, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":    cfg.OutputFile,
		"events":  s.ROSEvents,
		"minutes": time.Since(t).Minutes(),
	}).Info("Saved")

	if cfg.SummaryFile != "" {
		if err := s.WriteTOML(cfg.SummaryFile); err != nil {
			return nil, err
		}
	}
	log.WithField("minutes", time.Since(start).Minutes()).Infof("Finished successfully: %v", s)
	return s, nil
}
