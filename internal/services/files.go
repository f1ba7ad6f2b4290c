package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FileService — CRUD файлов комнаты. Перед каждой перезаписью содержимого
// предыдущая версия обязана уже лежать в истории: Update не коммитит новое
// содержимое, пока авто-снапшот старого не записан.
type FileService struct {
	db *database.Database
}

func NewFileService(db *database.Database) *FileService {
	return &FileService{db: db}
}

func (s *FileService) Create(roomID uuid.UUID, name, language, content string, createdBy uuid.UUID) (*models.File, error) {
	if language == "" {
		language = "javascript"
	}

	now := time.Now()
	file := &models.File{
		ID:        uuid.New(),
		RoomID:    roomID,
		Name:      name,
		Language:  language,
		Content:   content,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateFile(file); err != nil {
		return nil, err
	}

	logrus.Infof("File created: %s (%s) in room %s", file.Name, file.ID, roomID)
	return file, nil
}

func (s *FileService) Get(roomID, fileID uuid.UUID) (*models.File, error) {
	file, err := s.db.GetFile(roomID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

func (s *FileService) List(roomID uuid.UUID) ([]models.File, error) {
	return s.db.ListRoomFiles(roomID)
}

// Update перезаписывает содержимое файла, предварительно сохранив снапшот
// старой версии. Если содержимое не изменилось, снапшот не создается —
// повторные сохранения того же текста не плодят шум в истории.
// Снапшот и перезапись идут одной транзакцией: упал снапшот — не записалось
// и новое содержимое.
func (s *FileService) Update(roomID, fileID uuid.UUID, content string, updatedBy string) (*models.File, error) {
	var updated *models.File

	err := s.db.WithTx(func(tx *database.Database) error {
		file, err := tx.GetFile(roomID, fileID)
		if err != nil {
			return err
		}

		if file.Content != content {
			snapshot := &models.Snapshot{
				ID:            uuid.New(),
				FileID:        file.ID,
				Content:       file.Content,
				SavedBy:       updatedBy,
				CommitMessage: models.CommitAutoBeforeEdit,
				CreatedAt:     time.Now(),
			}
			if err := tx.CreateSnapshot(snapshot); err != nil {
				return err
			}
		}

		ts, err := tx.SetFileContent(roomID, fileID, content)
		if err != nil {
			return err
		}

		file.Content = content
		file.UpdatedAt = ts
		updated = file
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return updated, nil
}

// Delete удаляет файл и всю его историю, всё или ничего
func (s *FileService) Delete(roomID, fileID uuid.UUID) error {
	if err := s.db.DeleteFile(roomID, fileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	logrus.Infof("File deleted: %s in room %s", fileID, roomID)
	return nil
}
