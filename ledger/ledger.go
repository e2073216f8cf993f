package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"danang-green/kv"
	"danang-green/metrics"
	"danang-green/models"

	"github.com/apex/log"
)

// PointsKeySuffix is appended to the storage prefix to form the ledger key
const PointsKeySuffix = ":userPoints"

// Ledger is the reward point balance. It is loaded once at start-up and saved after every grant.
type Ledger struct {
	mu     sync.Mutex
	points int
	loaded bool

	kv  kv.Store
	key string
}

func New(backend kv.Store, prefix string) *Ledger {
	return &Ledger{kv: backend, key: prefix + PointsKeySuffix}
}

// Load reads the stored total. A missing key starts the ledger at zero;
// an unreadable value is logged and also treated as zero.
func (l *Ledger) Load(ctx context.Context) error {
	data, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return fmt.Errorf("failed to load reward points: %w", err)
	}
	points := 0
	if ok {
		points, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			log.WithError(err).Errorf("Stored reward points under %s are unreadable, starting at 0", l.key)
			points = 0
		}
	}

	l.mu.Lock()
	l.points = points
	l.loaded = true
	l.mu.Unlock()
	metrics.PointsBalance.Set(float64(points))
	return nil
}

// Points returns the current total
func (l *Ledger) Points() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points
}

// Grant adds n points and saves the new total. The in-memory total is kept
// even when saving fails.
func (l *Ledger) Grant(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("grant must be positive, got %d", n)
	}
	l.mu.Lock()
	if !l.loaded {
		l.mu.Unlock()
		return 0, fmt.Errorf("ledger %s used before Load", l.key)
	}
	l.points += n
	total := l.points
	l.mu.Unlock()

	metrics.PointsBalance.Set(float64(total))
	return total, l.save(ctx, total)
}

// Save writes the current total
func (l *Ledger) Save(ctx context.Context) error {
	return l.save(ctx, l.Points())
}

func (l *Ledger) save(ctx context.Context, total int) error {
	if err := l.kv.Set(ctx, l.key, []byte(strconv.Itoa(total))); err != nil {
		metrics.StorageWriteErrors.Inc()
		return &models.StorageWriteError{Key: l.key, Err: err}
	}
	return nil
}
