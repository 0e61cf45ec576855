// Package physics provides the trapped-ion force model.
//
// The package defines the particles and fields of a linear Paul trap:
//
//   - [Trap]: RF and DC constants of the confining field
//   - [Ion]: per-particle state and its velocity-Verlet update
//   - [Laser]: a Doppler cooling beam assigned to ions
//   - [CoulombEvaluator]: pairwise repulsion for the whole ensemble
//
// Quantities are SI. Ion masses are given in atomic mass units and
// charges in elementary charges and converted where forces are formed.
//
// # Force Model
//
// The secular pseudopotential is always applied. Micromotion, Coulomb,
// stochastic heating and Doppler cooling are switched by the flags in
// [dynamo.Params]; a disabled term contributes exactly zero.
//
//	trap := physics.DefaultTrap()
//	params := dynamo.DefaultParams()
//	ion := physics.NewIon(&params, &trap, 40, 1, r3.Vec{Z: 20e-6})
//	x := ion.Update(0, nil)
package physics
