package inventory

import (
	"context"
	"time"

	"electric-inventory/internal/metrics"
	"electric-inventory/internal/models"
	"electric-inventory/internal/scope"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseLister is the read side of the purchase ledger.
type PurchaseLister interface {
	List(ctx context.Context, f scope.Filter) ([]models.Purchase, error)
}

type Service struct {
	purchases PurchaseLister
	logger    *zap.Logger
}

func NewService(purchases PurchaseLister, logger *zap.Logger) *Service {
	return &Service{purchases: purchases, logger: logger}
}

// List aggregates the purchases visible through f. A non-empty level keeps
// only snapshots at that stock level.
func (s *Service) List(ctx context.Context, f scope.Filter, level StockLevel) ([]Snapshot, error) {
	purchases, err := s.purchases.List(ctx, f)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snaps := Aggregate(purchases)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.AggregatedSnapshots.Observe(float64(len(snaps)))

	s.logger.Debug("inventory aggregated",
		zap.Stringer("scope", f),
		zap.Int("purchases", len(purchases)),
		zap.Int("snapshots", len(snaps)),
	)

	if level == "" {
		return snaps, nil
	}
	filtered := make([]Snapshot, 0, len(snaps))
	for _, sn := range snaps {
		if sn.StockLevel == level {
			filtered = append(filtered, sn)
		}
	}
	return filtered, nil
}

type Summary struct {
	ProductCount  int             `json:"productCount"`
	SnapshotCount int             `json:"snapshotCount"`
	BranchCount   int             `json:"branchCount"`
	LowCount      int             `json:"lowCount"`
	WarningCount  int             `json:"warningCount"`
	GoodCount     int             `json:"goodCount"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
}

// Summarize folds snapshots into dashboard counters.
func Summarize(snaps []Snapshot) Summary {
	sum := Summary{TotalQuantity: decimal.Zero, SnapshotCount: len(snaps)}
	products := make(map[string]struct{})
	branches := make(map[uint]struct{})

	for _, sn := range snaps {
		products[sn.ProductName] = struct{}{}
		if sn.BranchID != nil {
			branches[*sn.BranchID] = struct{}{}
		}
		sum.TotalQuantity = sum.TotalQuantity.Add(sn.CurrentQuantity)

		switch sn.StockLevel {
		case LevelLow:
			sum.LowCount++
		case LevelWarning:
			sum.WarningCount++
		case LevelGood:
			sum.GoodCount++
		}
	}

	sum.ProductCount = len(products)
	sum.BranchCount = len(branches)
	return sum
}

func (s *Service) Summary(ctx context.Context, f scope.Filter) (Summary, error) {
	snaps, err := s.List(ctx, f, "")
	if err != nil {
		return Summary{}, err
	}
	return Summarize(snaps), nil
}
