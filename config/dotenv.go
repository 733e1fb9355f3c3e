package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stevemurr/friends-server/log"
)

// LoadDotenvIfPresent reads a .env file for local development. It does not
// override existing environment variables and is a no-op when the file is
// absent or FRIENDS_ENV is "production".
func LoadDotenvIfPresent(path string) {
	if path == "" || strings.EqualFold(os.Getenv("FRIENDS_ENV"), "production") {
		return
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("dotenv stat error: %v", err)
		}
		return
	}

	if err := godotenv.Load(path); err != nil {
		log.Warnf("dotenv load error: %v", err)
	}
}
