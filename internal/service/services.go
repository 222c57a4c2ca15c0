package service

import (
	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
)

// Services bundles the server-side service layer.
type Services struct {
	AuthService   AuthService
	RecordService RecordService
}

// NewServices wires the server services to their repositories.
func NewServices(storages *store.Storages, cfg config.ServerApp, logger *logger.Logger) *Services {
	return &Services{
		AuthService:   NewAuthService(storages.UserRepository, cfg, logger),
		RecordService: NewRecordService(storages.RecordRepository, logger),
	}
}
