// Package car turns gamepad status updates into commands for a remote car.
package car

import "github.com/soar/padcontrol/internal/input"

// Instruction is one discrete command of the basic driving mode. The values
// double as the path of the car's HTTP endpoints.
type Instruction string

const (
	Forward  Instruction = "adelante"
	Backward Instruction = "atras"
	Left     Instruction = "izquierda"
	Right    Instruction = "derecha"
	Halt     Instruction = "parar"
)

// Input names the basic mode reads.
const (
	InputForward   = "adelante"
	InputBackward  = "atras"
	InputDirection = "direccion"
)

const activation = 0.5

// Decide maps a full status to an instruction. Steering wins over throttle,
// and forward wins over backward.
func Decide(s input.Status) Instruction {
	dir := s[InputDirection].Float()
	switch {
	case dir <= -activation:
		return Left
	case dir >= activation:
		return Right
	case s[InputForward].Float() >= activation:
		return Forward
	case s[InputBackward].Float() >= activation:
		return Backward
	default:
		return Halt
	}
}
