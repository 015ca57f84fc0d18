package order

import (
	"fmt"
	"time"

	"github.com/vasiliy-maslov/shop-service/internal/randcode"
)

const (
	DefaultNumberPrefix = "SS"
	numberEntropy       = 6
)

// NumberGenerator produces candidate order numbers. Uniqueness is enforced
// by the store; a generator only has to make collisions unlikely.
type NumberGenerator interface {
	Next(now time.Time) (string, error)
}

type NumberGeneratorFunc func(now time.Time) (string, error)

func (f NumberGeneratorFunc) Next(now time.Time) (string, error) {
	return f(now)
}

// RandomNumberGenerator yields Prefix + two-digit year + six characters of
// [0-9A-Z], e.g. SS25K3Q9ZD.
type RandomNumberGenerator struct {
	Prefix string
}

func (g RandomNumberGenerator) Next(now time.Time) (string, error) {
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}

	code, err := randcode.New(numberEntropy)
	if err != nil {
		return "", fmt.Errorf("order number: %w", err)
	}
	return fmt.Sprintf("%s%02d%s", prefix, now.Year()%100, code), nil
}
