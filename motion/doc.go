// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package motion moves idea bubbles around the board.

# Step

Step is a pure function of one body's kinematics:

	next := motion.Step(k, tuning, motion.DefaultBounds, rng)

Each tick the velocity is scaled by Tuning.Damping and added to the position.
A body that leaves the box [5,95]×[5,85] has the crossed velocity component
pointed back inside and the whole velocity turned by a random angle of at most
Tuning.MaxBounceDegrees, so bubbles do not settle into the same bounce path.
The position is then clamped to the box. Bodies never collide with each other.

# Spawn

New bodies start in the spawn region with speed in [MinSpeed, MaxSpeed]:

	k := motion.Spawn(tuning, rng)

# Scheduler

A Scheduler holds the set of running bodies. Stop freezes a body in place,
Start resumes it from the same position:

	s := motion.NewScheduler()
	s.Start(id)
	s.Stop(id)
*/
package motion
