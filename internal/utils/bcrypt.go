package utils

import (
	"golang.org/x/crypto/bcrypt"
)

var hashCost = bcrypt.DefaultCost

// SetHashCost changes the bcrypt cost used by HashPassword. Values outside the
// range bcrypt accepts are ignored.
func SetHashCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return
	}
	hashCost = cost
}

// HashPassword returns a salted bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
