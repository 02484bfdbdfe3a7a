// Package challenge generates and verifies the math problems shown at
// session-expiry decision time.
package challenge

import (
	"fmt"
	"math/rand/v2"

	"github.com/hauke92/mindgate/internal/domain"
)

// Challenge is one issued math problem. The answer never leaves the server.
type Challenge struct {
	ID         string                `json:"id"`
	Package    string                `json:"package"`
	Question   string                `json:"question"`
	Difficulty domain.MathDifficulty `json:"difficulty"`

	answer int
}

// Answer exposes the expected result for verification.
func (c Challenge) Answer() int {
	return c.answer
}

// Generate produces a random problem for the given difficulty. Easy is a
// single-digit addition, medium a times-table multiplication, hard a
// multiply-then-add with larger operands.
func Generate(difficulty domain.MathDifficulty) Challenge {
	var question string
	var answer int

	switch difficulty {
	case domain.MathHard:
		a := rand.IntN(13) + 12
		b := rand.IntN(13) + 12
		c := rand.IntN(90) + 10
		question = fmt.Sprintf("%d × %d + %d", a, b, c)
		answer = a*b + c
	case domain.MathMedium:
		a := rand.IntN(10) + 3
		b := rand.IntN(10) + 3
		question = fmt.Sprintf("%d × %d", a, b)
		answer = a * b
	default:
		a := rand.IntN(9) + 1
		b := rand.IntN(9) + 1
		question = fmt.Sprintf("%d + %d", a, b)
		answer = a + b
	}

	return Challenge{
		Question:   question,
		Difficulty: difficulty,
		answer:     answer,
	}
}
