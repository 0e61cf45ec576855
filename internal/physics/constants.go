package physics

// CODATA 2018 values.
const (
	AMU              = 1.66053906660e-27 // kg
	ElementaryCharge = 1.602176634e-19   // C
	Boltzmann        = 1.380649e-23      // J/K
	CoulombConstant  = 8.9875517923e9    // N m^2 / C^2
)
