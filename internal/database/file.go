package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateFile(file *models.File) error {
	return d.db.Create(file).Error
}

func (d *Database) GetFile(roomID, fileID uuid.UUID) (*models.File, error) {
	var file models.File
	if err := d.db.First(&file, "id = ? AND room_id = ?", fileID, roomID).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// ListRoomFiles возвращает файлы комнаты в порядке создания
func (d *Database) ListRoomFiles(roomID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := d.db.
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// SetFileContent безусловно перезаписывает содержимое (last-writer-wins)
func (d *Database) SetFileContent(roomID, fileID uuid.UUID, content string) (time.Time, error) {
	now := time.Now()
	res := d.db.Model(&models.File{}).
		Where("id = ? AND room_id = ?", fileID, roomID).
		Updates(map[string]interface{}{"content": content, "updated_at": now})
	if res.Error != nil {
		return time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		return time.Time{}, gorm.ErrRecordNotFound
	}
	return now, nil
}

// DeleteFile удаляет файл вместе со всеми его снапшотами одной транзакцией.
// Частичное удаление (файл без истории или история без файла) недопустимо.
func (d *Database) DeleteFile(roomID, fileID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var file models.File
		if err := tx.First(&file, "id = ? AND room_id = ?", fileID, roomID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Snapshot{}, "file_id = ?", fileID).Error; err != nil {
			return err
		}

		return tx.Delete(&file).Error
	})
}
