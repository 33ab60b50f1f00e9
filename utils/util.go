package utils

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost bcrypt 计算强度
const PasswordCost = 12

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// 以1开头，第二位是3-9，后面跟着9位数字
	phoneRegex = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(password, hashedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func IsValidEmail(userInput string) bool {
	return emailRegex.MatchString(userInput)
}

func IsValidPhone(userInput string) bool {
	return phoneRegex.MatchString(userInput)
}
