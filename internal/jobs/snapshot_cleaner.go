package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// Как часто запускается прореживание
	DefaultCleanInterval = time.Hour
	// Авто-снапшоты моложе этого возраста не трогаем
	DefaultMinAge = 24 * time.Hour
	// Старше этого возраста история уже прорежена, окно сканирования ограничено
	DefaultRetention = 30 * 24 * time.Hour
	// Внутри одного файла оставляем не больше одного авто-снапшота на корзину
	bucketSize = time.Hour
)

// SnapshotCleaner прореживает старые авто-снапшоты: для каждого файла
// в каждом часовом интервале остается только самый свежий. Ручные
// снапшоты и снапшоты перед откатом не удаляются никогда.
type SnapshotCleaner struct {
	db       *database.Database
	interval time.Duration
	minAge   time.Duration
	done     chan struct{}
}

func NewSnapshotCleaner(db *database.Database) *SnapshotCleaner {
	return &SnapshotCleaner{
		db:       db,
		interval: DefaultCleanInterval,
		minAge:   DefaultMinAge,
		done:     make(chan struct{}),
	}
}

func (c *SnapshotCleaner) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.runOnce()
			case <-c.done:
				return
			}
		}
	}()
}

func (c *SnapshotCleaner) Stop() {
	close(c.done)
}

func (c *SnapshotCleaner) runOnce() {
	now := time.Now()
	from := now.Add(-DefaultRetention)
	to := now.Add(-c.minAge)

	snapshots, err := c.db.GetAutoSnapshotsBetween(from, to)
	if err != nil {
		logrus.Errorf("snapshot cleaner: failed to load snapshots: %v", err)
		return
	}

	stale := collectStale(snapshots)
	if len(stale) == 0 {
		return
	}

	if err := c.db.DeleteSnapshots(stale); err != nil {
		logrus.Errorf("snapshot cleaner: failed to delete %d snapshots: %v", len(stale), err)
		return
	}

	logrus.Infof("snapshot cleaner: removed %d stale auto snapshots", len(stale))
}

type bucketKey struct {
	fileID uuid.UUID
	bucket int64
}

// collectStale возвращает id всех авто-снапшотов, кроме самого свежего
// в каждой корзине (файл, час). Вход отсортирован по file_id и created_at ASC,
// поэтому последний увиденный в корзине и есть самый свежий.
func collectStale(snapshots []models.Snapshot) []uuid.UUID {
	latest := make(map[bucketKey]uuid.UUID)
	var stale []uuid.UUID

	for _, s := range snapshots {
		key := bucketKey{fileID: s.FileID, bucket: s.CreatedAt.Truncate(bucketSize).Unix()}
		if prev, ok := latest[key]; ok {
			stale = append(stale, prev)
		}
		latest[key] = s.ID
	}

	return stale
}
