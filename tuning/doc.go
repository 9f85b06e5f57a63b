// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tuning loads motion constants from a YAML file and reloads them on
change.

	damping: 0.5
	max_bounce_degrees: 15
	min_speed: 0.125
	max_speed: 0.25
	spawn:
	  min_x: 10
	  max_x: 90
	  min_y: 10
	  max_y: 70
	radius: 48
	expanded_radius: 170
	frame_rate: 60

Every key is optional. A file that fails validation on reload is logged and
ignored.
*/
package tuning
