package jobs

import (
	"context"

	"storefront/internal/metrics"
	"storefront/internal/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LowStockLister lists active products at or below a stock threshold
type LowStockLister interface {
	LowStock(ctx context.Context, threshold int) ([]*models.Product, error)
}

type InventoryAlertService struct {
	products  LowStockLister
	threshold int
}

type InventoryAlert struct {
	ProductID    uuid.UUID
	ProductName  string
	SKU          string
	CurrentStock int
	Threshold    int
}

func NewInventoryAlertService(products LowStockLister, threshold int) *InventoryAlertService {
	if threshold < 0 {
		threshold = 0
	}
	return &InventoryAlertService{
		products:  products,
		threshold: threshold,
	}
}

func (a *InventoryAlertService) CheckLowStock(ctx context.Context) ([]InventoryAlert, error) {
	products, err := a.products.LowStock(ctx, a.threshold)
	if err != nil {
		return nil, err
	}

	alerts := make([]InventoryAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, InventoryAlert{
			ProductID:    p.ID,
			ProductName:  p.Name,
			SKU:          p.SKU,
			CurrentStock: p.StockQty,
			Threshold:    a.threshold,
		})
	}
	return alerts, nil
}

// PublishAlerts logs each alert and replaces the low-stock gauges with the current set
func (a *InventoryAlertService) PublishAlerts(alerts []InventoryAlert) {
	metrics.ProductStockLevel.Reset()
	metrics.LowStockProducts.Set(float64(len(alerts)))

	if len(alerts) == 0 {
		log.Debug("No low stock alerts")
		return
	}

	for _, alert := range alerts {
		metrics.ProductStockLevel.WithLabelValues(alert.ProductID.String(), alert.SKU).Set(float64(alert.CurrentStock))
		log.WithFields(log.Fields{
			"product_id": alert.ProductID,
			"product":    alert.ProductName,
			"sku":        alert.SKU,
			"stock":      alert.CurrentStock,
			"threshold":  alert.Threshold,
		}).Warn("Product stock is low")
	}
}

// ScheduledLowStockCheck runs one check and publishes the result
func (a *InventoryAlertService) ScheduledLowStockCheck(ctx context.Context) error {
	alerts, err := a.CheckLowStock(ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled low stock check failed")
		return err
	}

	a.PublishAlerts(alerts)
	log.WithField("alerts", len(alerts)).Info("Scheduled low stock check completed")
	return nil
}
