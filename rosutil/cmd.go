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

// Package rosutil holds the command-line interface for the rain-on-snow
// extraction.
package rosutil

import (
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/ros"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	d := ros.DefaultConfig()

	// Options are the configuration options available to ros.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Year",
			usage: `
              Year specifies the year of the input files to process.`,
			shorthand:  "y",
			defaultVal: d.Year,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "Month",
			usage: `
              Month specifies the month (1-12) of the input files to process.`,
			shorthand:  "m",
			defaultVal: int(d.Month),
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "InputDir",
			usage: `
              InputDir is the directory holding the per-day WRF output
              files. [YEAR] and [MONTH] are replaced with the selected year
              and month, and environment variables are expanded.`,
			defaultVal: d.InputDir,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "InputPattern",
			usage: `
              InputPattern is the file name pattern of the input files
              within InputDir. It can contain wildcards, [YEAR] and [MONTH].`,
			defaultVal: d.InputPattern,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "GeographyFile",
			usage: `
              GeographyFile is the path to the WRF geo_em file holding the
              LANDMASK and LU_INDEX variables. It can include environment
              variables.`,
			defaultVal: d.GeographyFile,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the compressed NetCDF output
              should be written. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: d.OutputFile,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "CompressionLevel",
			usage: `
              CompressionLevel is the deflate compression level (1-9) of the
              output file.`,
			defaultVal: d.CompressionLevel,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "SummaryFile",
			usage: `
              SummaryFile is an optional path where a TOML summary of the run
              is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is an optional path where a copy of the log output is
              written. It can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ROS")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	Root.AddCommand(versionCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ros: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// config builds a run configuration from Cfg.
func config() (ros.Config, error) {
	var c ros.Config
	var err error
	if c.Year, err = cast.ToIntE(Cfg.Get("Year")); err != nil {
		return c, fmt.Errorf("ros: invalid Year: %v", err)
	}
	month, err := cast.ToIntE(Cfg.Get("Month"))
	if err != nil {
		return c, fmt.Errorf("ros: invalid Month: %v", err)
	}
	c.Month = time.Month(month)
	if c.CompressionLevel, err = cast.ToIntE(Cfg.Get("CompressionLevel")); err != nil {
		return c, fmt.Errorf("ros: invalid CompressionLevel: %v", err)
	}
	c.InputDir = Cfg.GetString("InputDir")
	c.InputPattern = Cfg.GetString("InputPattern")
	c.GeographyFile = os.ExpandEnv(Cfg.GetString("GeographyFile"))
	c.OutputFile = os.ExpandEnv(Cfg.GetString("OutputFile"))
	c.SummaryFile = os.ExpandEnv(Cfg.GetString("SummaryFile"))
	return c, c.Validate()
}

// Root is the main command. Without a subcommand it runs the
// rain-on-snow extraction.
var Root = &cobra.Command{
	Use:   "ros",
	Short: "Extract hourly rain-on-snow events from WRF output.",
	Long: `ros reads a month of downscaled WRF output, removes ocean and
other non-land grid cells, flags every cell and hour where more than
0.254 mm of rain falls on more than 2.54 mm of snow, and writes the hourly
flags, rain and snow to a compressed NetCDF file.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'ROS_var' where 'var' is the
name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	Args:              cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(cmd.OutOrStdout(), os.ExpandEnv(Cfg.GetString("LogFile")))
		if err != nil {
			return err
		}
		defer closeLog()
		_, err = ros.Run(c, log)
		if err != nil {
			log.WithError(err).Error("Run failed")
		}
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ros.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ros v%s\n", ros.Version)
	},
	DisableAutoGenTag: true,
}
