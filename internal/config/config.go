package config

import (
	"os"
	"strconv"
)

type Config struct {
	KeyBits         int
	Exponent        int
	Message         string
	Personalization string
	Scheme          string
	Hash            string
	LogLevel        string
	AuditBuffer     int
	AuditFile       string
}

func Load() Config {
	return Config{
		KeyBits:         envInt("RSA_DEMO_KEY_BITS", 2048),
		Exponent:        envInt("RSA_DEMO_EXPONENT", 65537),
		Message:         envOr("RSA_DEMO_MESSAGE", "HelloWorld"),
		Personalization: envOr("RSA_DEMO_PERSONALIZATION", "rsa_sign_test"),
		Scheme:          envOr("RSA_DEMO_SCHEME", "RSASSA-PKCS1-V1_5"),
		Hash:            envOr("RSA_DEMO_HASH", "SHA-256"),
		LogLevel:        envOr("RSA_DEMO_LOG_LEVEL", "info"),
		AuditBuffer:     envInt("RSA_DEMO_AUDIT_BUFFER", 64),
		AuditFile:       os.Getenv("RSA_DEMO_AUDIT_FILE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
