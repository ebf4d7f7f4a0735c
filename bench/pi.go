// Package bench holds a small CPU benchmark used to check the health of an
// instance before committing to it.
package bench

import (
	"fmt"
	"math/big"
	"time"
)

const guardDigits = 10

// arccot returns arccot(x) scaled by unity, summing the Taylor series until
// a term vanishes.
func arccot(x int64, unity *big.Int) *big.Int {
	bx := big.NewInt(x)
	x2 := new(big.Int).Mul(bx, bx)

	xpower := new(big.Int).Div(unity, bx)
	sum := new(big.Int).Set(xpower)
	term := new(big.Int)
	n := big.NewInt(3)
	two := big.NewInt(2)
	positive := false

	for {
		xpower.Div(xpower, x2)
		term.Div(xpower, n)
		if term.Sign() == 0 {
			break
		}
		if positive {
			sum.Add(sum, term)
		} else {
			sum.Sub(sum, term)
		}
		positive = !positive
		n.Add(n, two)
	}
	return sum
}

// Pi returns floor(π × 10^digits) using Machin's formula
// π = 4·(4·arccot 5 − arccot 239).
func Pi(digits int) (*big.Int, error) {
	if digits < 0 {
		return nil, fmt.Errorf("digits must not be negative, got %d", digits)
	}
	ten := big.NewInt(10)
	unity := new(big.Int).Exp(ten, big.NewInt(int64(digits+guardDigits)), nil)

	pi := new(big.Int).Mul(arccot(5, unity), big.NewInt(4))
	pi.Sub(pi, arccot(239, unity))
	pi.Mul(pi, big.NewInt(4))

	return pi.Div(pi, new(big.Int).Exp(ten, big.NewInt(guardDigits), nil)), nil
}

// Result is the outcome of one benchmark run.
type Result struct {
	Digits  int
	Last3   int64
	Elapsed time.Duration
}

// Run computes π to digits and times it. Last3 is π mod 1000, enough to
// check the computation without printing every digit.
func Run(digits int) (Result, error) {
	start := time.Now()
	pi, err := Pi(digits)
	if err != nil {
		return Result{}, err
	}
	last3 := new(big.Int).Mod(pi, big.NewInt(1000))
	return Result{Digits: digits, Last3: last3.Int64(), Elapsed: time.Since(start)}, nil
}
