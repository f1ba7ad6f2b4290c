package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/models"
)

func (d *Database) CreateSnapshot(snapshot *models.Snapshot) error {
	return d.db.Create(snapshot).Error
}

func (d *Database) GetSnapshot(fileID, snapshotID uuid.UUID) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := d.db.First(&snapshot, "id = ? AND file_id = ?", snapshotID, fileID).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListFileSnapshots возвращает историю файла, новые записи первыми.
// Вторичная сортировка по id держит порядок стабильным при совпадении created_at.
func (d *Database) ListFileSnapshots(fileID uuid.UUID) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	err := d.db.
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetAutoSnapshotsBetween отдает авто-снапшоты за окно времени, старые первыми.
// Используется фоновой чисткой истории.
func (d *Database) GetAutoSnapshotsBetween(from, to time.Time) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	err := d.db.
		Where("commit_message = ? AND created_at BETWEEN ? AND ?", models.CommitAutoBeforeEdit, from, to).
		Order("file_id").
		Order("created_at ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (d *Database) DeleteSnapshots(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return d.db.Delete(&models.Snapshot{}, "id IN ?", ids).Error
}
