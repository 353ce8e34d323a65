package sellers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownSeller is returned when no seller owns a folder.
var ErrUnknownSeller = errors.New("unknown seller")

// ErrInactiveSeller is returned when the owning seller is disabled.
var ErrInactiveSeller = errors.New("seller is inactive")

// Directory resolves folders to sellers, caching the whole table for ttl.
type Directory struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	index map[string]Seller
	built time.Time
	sf    singleflight.Group
}

// NewDirectory creates a directory on db. A zero ttl disables caching.
func NewDirectory(db *gorm.DB, ttl time.Duration) *Directory {
	return &Directory{db: db, ttl: ttl, now: time.Now}
}

// Resolve returns the active seller that owns folder.
func (d *Directory) Resolve(ctx context.Context, folder string) (Seller, error) {
	index, err := d.load(ctx)
	if err != nil {
		return Seller{}, err
	}

	s, ok := index[NormalizeFolder(folder)]
	if !ok {
		return Seller{}, fmt.Errorf("%w: %q", ErrUnknownSeller, folder)
	}
	if !s.Active {
		return s, fmt.Errorf("%w: %q", ErrInactiveSeller, folder)
	}
	return s, nil
}

// List returns every seller ordered by folder.
func (d *Directory) List(ctx context.Context) ([]Seller, error) {
	var rows []Seller
	if err := d.db.WithContext(ctx).Order("folder_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	return rows, nil
}

// Upsert inserts or updates sellers keyed by folder and drops the cache.
func (d *Directory) Upsert(ctx context.Context, sellers []Seller) (int, error) {
	if len(sellers) == 0 {
		return 0, nil
	}
	for i := range sellers {
		sellers[i].FolderName = NormalizeFolder(sellers[i].FolderName)
		if sellers[i].FolderName == "" {
			return 0, fmt.Errorf("seller %d has no folder name", i)
		}
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "folder_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"company_name", "active", "updated_at"}),
	}).Create(&sellers).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert sellers: %w", err)
	}

	d.Invalidate()
	return len(sellers), nil
}

// SetActive toggles a seller by folder.
func (d *Directory) SetActive(ctx context.Context, folder string, active bool) error {
	res := d.db.WithContext(ctx).Model(&Seller{}).
		Where("folder_name = ?", NormalizeFolder(folder)).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update seller %q: %w", folder, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSeller, folder)
	}
	d.Invalidate()
	return nil
}

// Invalidate drops the cached index.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.index = nil
	d.mu.Unlock()
}

func (d *Directory) fresh() bool {
	return d.index != nil && d.ttl > 0 && d.now().Sub(d.built) <= d.ttl
}

func (d *Directory) load(ctx context.Context) (map[string]Seller, error) {
	d.mu.RLock()
	if d.fresh() {
		index := d.index
		d.mu.RUnlock()
		return index, nil
	}
	d.mu.RUnlock()

	v, err, _ := d.sf.Do("sellers", func() (any, error) {
		d.mu.RLock()
		if d.fresh() {
			index := d.index
			d.mu.RUnlock()
			return index, nil
		}
		d.mu.RUnlock()

		var rows []Seller
		if err := d.db.WithContext(ctx).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load sellers: %w", err)
		}
		index := make(map[string]Seller, len(rows))
		for _, s := range rows {
			index[NormalizeFolder(s.FolderName)] = s
		}

		d.mu.Lock()
		d.index = index
		d.built = d.now()
		d.mu.Unlock()
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]Seller), nil
}
