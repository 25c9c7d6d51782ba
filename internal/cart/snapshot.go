package cart

import (
	"sort"
	"sync/atomic"
	"time"

	"kiosk/internal/model"
)

// Line is one priced cart entry.
type Line struct {
	Label     string  `json:"label"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Snapshot is the cart as published after a reconciliation tick. Snapshots
// are immutable once published; Items and Lines must not be modified.
type Snapshot struct {
	Items  map[string]int `json:"items"`
	Lines  []Line         `json:"lines"`
	Total  float64        `json:"total"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Seq    uint64         `json:"seq"`
	At     time.Time      `json:"at"`

	// Last annotated frame that showed at least one item, kept as checkout evidence.
	Annotated  model.Frame       `json:"-"`
	Detections []model.Detection `json:"-"`
}

// Empty reports whether the cart holds no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Unavailable builds the persistent snapshot shown when detection cannot run.
func Unavailable(err error, at time.Time) Snapshot {
	return Snapshot{
		Items:  map[string]int{},
		Lines:  []Line{},
		Status: StatusNothingDetected,
		Error:  "detector unavailable: " + err.Error(),
		At:     at,
	}
}

func buildLines(items map[string]int, prices PriceTable) []Line {
	lines := make([]Line, 0, len(items))
	for label, quantity := range items {
		price := prices.Lookup(label)
		lines = append(lines, Line{
			Label:     label,
			Quantity:  quantity,
			UnitPrice: price,
			Subtotal:  RoundCents(float64(quantity) * price),
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Label < lines[j].Label })
	return lines
}

// Sink consumes published snapshots. Publish overwrites; a sink only ever
// reflects the latest snapshot and must accept repeats.
type Sink interface {
	Publish(snapshot Snapshot)
}

// Board is a Sink that keeps the latest snapshot for readers on other goroutines.
type Board struct {
	latest atomic.Pointer[Snapshot]
}

// NewBoard returns a board holding an empty cart.
func NewBoard() *Board {
	b := &Board{}
	b.latest.Store(&Snapshot{Items: map[string]int{}, Lines: []Line{}, Status: StatusNothingDetected})
	return b
}

// Publish implements Sink.
func (b *Board) Publish(snapshot Snapshot) {
	b.latest.Store(&snapshot)
}

// Latest returns the most recently published snapshot.
func (b *Board) Latest() Snapshot {
	return *b.latest.Load()
}
