package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes an admin password at the configured cost.
// Only admin accounts pass through here; guest sessions are
// passwordless and carry no hash at all.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
