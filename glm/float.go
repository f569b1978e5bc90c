package glm

import "golang.org/x/exp/constraints"

type float interface {
	constraints.Float
}

type numeric interface {
	constraints.Float | constraints.Unsigned
}

// Rad is an angle in radians.
type Rad float64
