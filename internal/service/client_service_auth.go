package service

import (
	"context"
	"fmt"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/adapter"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

type clientAuthService struct {
	remote adapter.RemoteStore
	device string

	logger *logger.Logger
}

// NewClientAuthService constructs the [ClientAuthService]. device is this
// device's label (e.g. "mom's phone"); it rides along on register and login
// so the server can attribute every write the device makes.
func NewClientAuthService(remote adapter.RemoteStore, device string, logger *logger.Logger) ClientAuthService {
	return &clientAuthService{
		remote: remote,
		device: device,
		logger: logger,
	}
}

// Register implements [ClientAuthService]. After a successful call the
// remote store holds the bearer token for all subsequent sync traffic.
func (s *clientAuthService) Register(ctx context.Context, login, password, name string) (models.Token, error) {
	if login == "" || password == "" {
		return models.Token{}, ErrInvalidDataProvided
	}

	token, err := s.remote.Register(ctx, models.RegisterRequest{
		Login:    login,
		Password: password,
		Name:     name,
		Device:   s.device,
	})
	if err != nil {
		return models.Token{}, fmt.Errorf("register: %w", err)
	}

	s.logger.Info().
		Str("func", "*clientAuthService.Register").
		Str("login", login).
		Str("device", s.device).
		Msg("account registered")

	return token, nil
}

// Login implements [ClientAuthService].
func (s *clientAuthService) Login(ctx context.Context, login, password string) (models.Token, error) {
	if login == "" || password == "" {
		return models.Token{}, ErrInvalidDataProvided
	}

	token, err := s.remote.Login(ctx, models.LoginRequest{
		Login:    login,
		Password: password,
		Device:   s.device,
	})
	if err != nil {
		return models.Token{}, fmt.Errorf("login: %w", err)
	}

	s.logger.Info().
		Str("func", "*clientAuthService.Login").
		Str("login", login).
		Str("device", s.device).
		Msg("device logged in")

	return token, nil
}
