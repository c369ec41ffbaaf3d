package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// DivideRoundingUp divides value by divisor, rounding toward positive infinity. divisor must be positive.
func DivideRoundingUp(value, divisor int) int {
	return (value + divisor - 1) / divisor
}

// TileCountForBytes rounds sizeInBytes up to the next tile boundary and returns the number of
// tiles that covers it
func TileCountForBytes(sizeInBytes, tileSizeInBytes int) int {
	if sizeInBytes <= 0 {
		return 0
	}
	return DivideRoundingUp(sizeInBytes, tileSizeInBytes)
}
