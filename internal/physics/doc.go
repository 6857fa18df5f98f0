// Package physics provides the learned fluid model and the scenes it runs
// on.
//
// [LearnedFluid] advances a particle state by one timestep: a gravity
// step, a correction predicted by the dual-branch network, then a
// velocity recovered from the corrected displacement:
//
//	fluid, _ := physics.NewLearnedFluid(cfg.Model)
//	state, box := physics.DamBreak(cfg.Scene, cfg.Model.OtherFeatsChannels, cfg.Model.Seed)
//	step, err := fluid.Step(state, box)
//
// # Thread Safety
//
// Parameters are read-only during a step, so concurrent steps on one
// [LearnedFluid] are safe as long as nobody calls [LearnedFluid.LoadParams]
// at the same time.
package physics
