package services

import (
	"errors"

	"github.com/m4cd4r4/SwanFlow/config"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyAPIKey = errors.New("api key must not be empty")

// APIKeyService checks the shared sensor key. Only its bcrypt hash is held in
// memory.
type APIKeyService struct {
	hash []byte
}

func NewAPIKeyService(cfg config.AuthConfig) (*APIKeyService, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.APIKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &APIKeyService{hash: hash}, nil
}

func (s *APIKeyService) Authenticate(key string) bool {
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(key)) == nil
}
