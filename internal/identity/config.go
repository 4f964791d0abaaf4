package identity

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	BcryptCost int
}

// ConfigFromEnv reads BCRYPT_COST (default 12).
func ConfigFromEnv() Config {
	cost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= bcrypt.MinCost && n <= bcrypt.MaxCost {
			cost = n
		}
	}
	return Config{BcryptCost: cost}
}
