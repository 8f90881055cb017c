package models

import "time"

// Snapshot is an immutable view over the four input relations.
// Lookup indexes are built once in NewSnapshot; nothing mutates a Snapshot afterwards,
// so any number of goroutines may read it concurrently.
type Snapshot struct {
	Orders    []Order
	Customers []Customer
	Products  []Product
	Campaigns []Campaign
	LoadedAt  time.Time

	customers map[int64]*Customer
	products  map[int64]*Product
	campaigns map[int64]*Campaign
}

// NewSnapshot creates a snapshot and indexes the dimension relations by id
func NewSnapshot(orders []Order, customers []Customer, products []Product, campaigns []Campaign) *Snapshot {
	s := &Snapshot{
		Orders:    orders,
		Customers: customers,
		Products:  products,
		Campaigns: campaigns,
		customers: make(map[int64]*Customer, len(customers)),
		products:  make(map[int64]*Product, len(products)),
		campaigns: make(map[int64]*Campaign, len(campaigns)),
	}
	for i := range customers {
		s.customers[customers[i].CustomerID] = &customers[i]
	}
	for i := range products {
		s.products[products[i].ProductID] = &products[i]
	}
	for i := range campaigns {
		s.campaigns[campaigns[i].CampaignID] = &campaigns[i]
	}
	return s
}

// Customer returns the customer with the given id, or nil
func (s *Snapshot) Customer(id int64) *Customer {
	return s.customers[id]
}

// Product returns the product with the given id, or nil
func (s *Snapshot) Product(id int64) *Product {
	return s.products[id]
}

// Campaign returns the campaign referenced by an order, or nil when the order
// has no campaign or the campaign is unknown
func (s *Snapshot) Campaign(id *int64) *Campaign {
	if id == nil {
		return nil
	}
	return s.campaigns[*id]
}
