package notifications

import (
	"fmt"

	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/metrics"
	"github.com/ecobridge/ecobridge-server/pkg/outbox"
	"github.com/ecobridge/ecobridge-server/pkg/outbox/dispatcher"
	"github.com/ecobridge/ecobridge-server/pkg/outbox/registry"
)

// NewDrainer builds the outbox drainer with the notification deliverer
// registered. The API process and cmd/outbox-worker share it.
func NewDrainer(client *db.Client, cfg config.OutboxConfig, logg *logger.Logger, m *metrics.OutboxMetrics) (*dispatcher.Service, error) {
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	drainer, err := dispatcher.NewService(dispatcher.ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            client,
		Repository:    outbox.NewRepository(client.DB()),
		Registry:      registry.NewEventRegistry(),
		DLQRepository: outbox.NewDLQRepository(client.DB()),
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}
	deliverer, err := NewDeliverer(NewRepository(client.DB()), logg, m)
	if err != nil {
		return nil, err
	}
	drainer.Register(enums.EventNotificationRequested, deliverer)
	return drainer, nil
}
