package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionReport aggregates one day of hatchery activity. The MongoDB
// archive stores SalesAmount as Decimal128.
type DistributionReport struct {
	Date             time.Time       `bson:"date" json:"date"`
	StockByType      map[string]int  `bson:"stock_by_type" json:"stock_by_type"`
	LotsOnHand       int             `bson:"lots_on_hand" json:"lots_on_hand"`
	RequestsCreated  int             `bson:"requests_created" json:"requests_created"`
	RequestsApproved int             `bson:"requests_approved" json:"requests_approved"`
	RequestsRejected int             `bson:"requests_rejected" json:"requests_rejected"`
	PendingBacklog   int             `bson:"pending_backlog" json:"pending_backlog"`
	SalesCount       int             `bson:"sales_count" json:"sales_count"`
	ChicksSold       int             `bson:"chicks_sold" json:"chicks_sold"`
	SalesAmount      decimal.Decimal `bson:"-" json:"sales_amount"`
	CreatedAt        time.Time       `bson:"created_at" json:"created_at"`
}

// DailyActivity is the raw ledger activity for a time window.
type DailyActivity struct {
	RequestsCreated  int
	RequestsApproved int
	RequestsRejected int
	PendingBacklog   int
	SalesCount       int
	ChicksSold       int
	SalesAmount      decimal.Decimal
}
