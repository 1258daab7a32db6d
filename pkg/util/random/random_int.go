package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GetRandomInt returns a uniformly random number with exactly length digits.
func GetRandomInt(length int) int {
	// length=4 -> [1000, 9999]
	min := int64(1)
	for i := 1; i < length; i++ {
		min *= 10
	}
	max := min * 10

	n, err := rand.Int(rand.Reader, big.NewInt(max-min))
	if err != nil {
		return int(min)
	}
	return int(n.Int64() + min)
}

// Discriminator draws a display-name tag such as "4412".
func Discriminator(digits int) string {
	return fmt.Sprintf("%0*d", digits, GetRandomInt(digits))
}
