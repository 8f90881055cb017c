package store

import (
	"context"
	"fmt"
	"time"

	"order-analytics/internal/models"
)

// GetOrders retrieves the full order fact table
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT order_id, customer_id, product_id, campaign_id, order_date, units_sold,
		       revenue, discount_pct, marketing_spend, returned, region, payment_method
		FROM orders ORDER BY order_date, order_id`)
	return orders, err
}

// LoadSnapshot reads the four relations and builds an immutable snapshot
func (s *Store) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	orders, err := s.GetOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	customers, err := s.GetCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	products, err := s.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	campaigns, err := s.GetCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}

	snap := models.NewSnapshot(orders, customers, products, campaigns)
	snap.LoadedAt = time.Now().UTC()
	return snap, nil
}
