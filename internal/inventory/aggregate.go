// Package inventory derives per-product, per-branch stock from the purchase
// ledger. Nothing here is persisted; every read re-aggregates.
package inventory

import (
	"sort"
	"strings"
	"time"

	"electric-inventory/internal/models"

	"github.com/shopspring/decimal"
)

type StockLevel string

const (
	LevelLow     StockLevel = "low"
	LevelWarning StockLevel = "warning"
	LevelGood    StockLevel = "good"
)

// ParseStockLevel accepts any casing.
func ParseStockLevel(s string) (StockLevel, bool) {
	switch l := StockLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelLow, LevelWarning, LevelGood:
		return l, true
	}
	return "", false
}

// Classify maps a quantity to a stock level. Boundaries fall to the worse
// level: qty == threshold is low, qty == 2*threshold is warning.
func Classify(qty decimal.Decimal, threshold int) StockLevel {
	t := decimal.NewFromInt(int64(threshold))
	switch {
	case t.GreaterThanOrEqual(qty):
		return LevelLow
	case qty.LessThanOrEqual(t.Mul(decimal.NewFromInt(2))):
		return LevelWarning
	default:
		return LevelGood
	}
}

// Snapshot is the current stock of one product in one branch.
// CurrentQuantity always equals TotalPurchased: there is no stock-out leg.
type Snapshot struct {
	ProductName       string          `json:"productName"`
	BranchID          *uint           `json:"branchId"`
	BranchName        string          `json:"branchName,omitempty"`
	CurrentQuantity   decimal.Decimal `json:"currentQuantity"`
	TotalPurchased    decimal.Decimal `json:"totalPurchased"`
	Unit              string          `json:"unit"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	Brand             string          `json:"brand"`
	LastPurchaseDate  time.Time       `json:"lastPurchaseDate"`
	PurchaseCount     int             `json:"purchaseCount"`
	StockLevel        StockLevel      `json:"stockLevel"`
}

type groupKey struct {
	product   string
	branchID  uint
	hasBranch bool
}

type group struct {
	snap   Snapshot
	latest *models.Purchase
}

// newer reports whether a was created after b; equal timestamps fall back
// to the higher id.
func newer(a, b *models.Purchase) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Aggregate groups non-removed purchases by (productName, branchId) and sums
// their quantities. Unit, threshold, brand and branch name come from the most
// recent purchase of each group. Output is sorted by product name, then
// branch id with purchases without a branch first.
func Aggregate(purchases []models.Purchase) []Snapshot {
	groups := make(map[groupKey]*group)
	order := make([]groupKey, 0)

	for i := range purchases {
		p := &purchases[i]
		if p.IsRemoved {
			continue
		}

		k := groupKey{product: p.ProductName}
		if p.BranchID != nil {
			k.branchID = *p.BranchID
			k.hasBranch = true
		}

		g, ok := groups[k]
		if !ok {
			g = &group{snap: Snapshot{
				ProductName:     p.ProductName,
				CurrentQuantity: decimal.Zero,
				TotalPurchased:  decimal.Zero,
			}}
			if k.hasBranch {
				id := k.branchID
				g.snap.BranchID = &id
			}
			groups[k] = g
			order = append(order, k)
		}

		g.snap.TotalPurchased = g.snap.TotalPurchased.Add(p.Quantity)
		g.snap.PurchaseCount++
		if g.latest == nil || newer(p, g.latest) {
			g.latest = p
		}
	}

	out := make([]Snapshot, 0, len(order))
	for _, k := range order {
		g := groups[k]
		s := g.snap
		s.CurrentQuantity = s.TotalPurchased
		s.Unit = g.latest.Unit
		s.LowStockThreshold = g.latest.LowStockThreshold
		s.Brand = g.latest.Brand
		s.LastPurchaseDate = g.latest.CreatedAt
		if g.latest.Branch != nil {
			s.BranchName = g.latest.Branch.Name
		}
		s.StockLevel = Classify(s.CurrentQuantity, s.LowStockThreshold)
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		bi, bj := out[i].BranchID, out[j].BranchID
		switch {
		case bi == nil && bj == nil:
			return false
		case bi == nil:
			return true
		case bj == nil:
			return false
		default:
			return *bi < *bj
		}
	})
	return out
}
