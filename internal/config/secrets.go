package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Secrets are the credentials read from the environment at process start.
type Secrets struct {
	AIKey         string
	TelegramToken string
	ChatID        string
}

// LoadSecrets reads credentials from the environment. If envFile exists it is
// loaded first; variables already set in the environment win.
func LoadSecrets(envFile, provider string) (Secrets, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Secrets{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	s := Secrets{
		AIKey:         aiKey(provider),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		ChatID:        strings.TrimSpace(os.Getenv("CHAT_ID")),
	}

	var missing []string
	if s.AIKey == "" {
		missing = append(missing, "GEMINI_API_KEY or AI_API_KEY")
	}
	if s.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if s.ChatID == "" {
		missing = append(missing, "CHAT_ID")
	}
	if len(missing) > 0 {
		return s, fmt.Errorf("missing environment: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

func aiKey(provider string) string {
	if provider == "gemini" {
		if k := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); k != "" {
			return k
		}
	}
	return strings.TrimSpace(os.Getenv("AI_API_KEY"))
}
