package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/mqtt"
)

const storeTimeout = 5 * time.Second

// registerMQTTHandler stores each validated telemetry message as one hourly
// reading.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, repo repository.AirQualityRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(telemetry types.Telemetry) error {
		logger.Debug("processing telemetry message",
			"station", telemetry.Station,
			"timestamp", telemetry.Timestamp,
		)

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		n, err := repo.InsertReadings(ctx, []types.Reading{telemetry.Reading()})
		if err != nil {
			logger.Error("failed to insert reading",
				"station", telemetry.Station,
				"error", err,
			)
			return err
		}
		if n == 0 {
			return fmt.Errorf("station %q is not in the store", telemetry.Station)
		}

		logger.Debug("successfully stored telemetry",
			"station", telemetry.Station,
		)
		return nil
	})
}
