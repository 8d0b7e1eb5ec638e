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

// Command ros extracts hourly rain-on-snow events from downscaled WRF
// output.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/ros/rosutil"
)

func main() {
	if err := rosutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
