package service

import (
	"log/slog"

	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/mqtt"
)

// Service wires live telemetry into the reading store.
type Service struct {
	repository repository.AirQualityRepository
	logger     *slog.Logger
}

func NewService(repository repository.AirQualityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s.repository, s.logger)
}
