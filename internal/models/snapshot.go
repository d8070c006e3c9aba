// internal/models/snapshot.go
package models

import "time"

// BusinessCounts holds the aggregate counters fetched in one round trip.
type BusinessCounts struct {
	ProductsTotal   int `json:"productsTotal"`
	ProductsActive  int `json:"productsActive"`
	ProductsLow     int `json:"productsLowStock"`
	OrdersTotal     int `json:"ordersTotal"`
	OrdersOpen      int `json:"ordersOpen"`
	OrdersCompleted int `json:"ordersCompleted"`
	PartnerLinks    int `json:"partnerLinks"`
}

// OrderSummary is a single order line in a snapshot.
type OrderSummary struct {
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Partner   string    `json:"partner"`
	Total     float64   `json:"total"`
	PlacedAt  time.Time `json:"placedAt"`
}

// ProductSummary is a single product line in a snapshot.
type ProductSummary struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"minStock"`
}

// BusinessSnapshot is the rendered per-actor grounding block plus its
// structured source data.
type BusinessSnapshot struct {
	ActorID      string           `json:"actorId"`
	Role         Role             `json:"role"`
	Counts       BusinessCounts   `json:"counts"`
	UrgentOrders []OrderSummary   `json:"urgentOrders,omitempty"`
	RecentOrders []OrderSummary   `json:"recentOrders,omitempty"`
	LowStock     []ProductSummary `json:"lowStock,omitempty"`
	Rendered     string           `json:"rendered"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}
