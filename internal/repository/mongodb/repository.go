package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// Repository defines the interface for report storage.
type Repository interface {
	SaveDistributionReport(ctx context.Context, report models.DistributionReport) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
	logger   *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "distribution_reports",
		logger:   logger,
	}, nil
}

// reportDocument is the stored shape of a DistributionReport.
type reportDocument struct {
	Date             time.Time            `bson:"date"`
	StockByType      map[string]int       `bson:"stock_by_type"`
	LotsOnHand       int                  `bson:"lots_on_hand"`
	RequestsCreated  int                  `bson:"requests_created"`
	RequestsApproved int                  `bson:"requests_approved"`
	RequestsRejected int                  `bson:"requests_rejected"`
	PendingBacklog   int                  `bson:"pending_backlog"`
	SalesCount       int                  `bson:"sales_count"`
	ChicksSold       int                  `bson:"chicks_sold"`
	SalesAmount      primitive.Decimal128 `bson:"sales_amount"`
	CreatedAt        time.Time            `bson:"created_at"`
}

func toDocument(r models.DistributionReport) (reportDocument, error) {
	amount, err := primitive.ParseDecimal128(r.SalesAmount.String())
	if err != nil {
		return reportDocument{}, fmt.Errorf("converting sales amount %s: %w", r.SalesAmount, err)
	}
	return reportDocument{
		Date:             r.Date.UTC(),
		StockByType:      r.StockByType,
		LotsOnHand:       r.LotsOnHand,
		RequestsCreated:  r.RequestsCreated,
		RequestsApproved: r.RequestsApproved,
		RequestsRejected: r.RequestsRejected,
		PendingBacklog:   r.PendingBacklog,
		SalesCount:       r.SalesCount,
		ChicksSold:       r.ChicksSold,
		SalesAmount:      amount,
		CreatedAt:        r.CreatedAt.UTC(),
	}, nil
}

// SaveDistributionReport stores a report, replacing any earlier report for the same day.
func (r *MongoDBRepository) SaveDistributionReport(ctx context.Context, report models.DistributionReport) error {
	doc, err := toDocument(report)
	if err != nil {
		return err
	}

	collection := r.client.Database(r.dbName).Collection(r.collName)
	res, err := collection.ReplaceOne(ctx, bson.M{"date": doc.Date}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save distribution report: %w", err)
	}

	r.logger.Debug("distribution report saved",
		zap.Time("date", doc.Date),
		zap.Bool("replaced", res.MatchedCount > 0))
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
