package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SnapshotService — ручные сохранения, история версий и откат
type SnapshotService struct {
	db *database.Database
}

func NewSnapshotService(db *database.Database) *SnapshotService {
	return &SnapshotService{db: db}
}

// RollbackResult — новое состояние файла после отката
type RollbackResult struct {
	File         *models.File
	RolledBackTo uuid.UUID
}

// Save сохраняет ручной снапшот текущего содержимого, сам файл не меняется
func (s *SnapshotService) Save(roomID, fileID uuid.UUID, savedBy, commitMessage string) (*models.Snapshot, error) {
	if commitMessage == "" {
		commitMessage = models.CommitManualSave
	}

	file, err := s.db.GetFile(roomID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	snapshot := &models.Snapshot{
		ID:            uuid.New(),
		FileID:        file.ID,
		Content:       file.Content,
		SavedBy:       savedBy,
		CommitMessage: commitMessage,
		CreatedAt:     time.Now(),
	}

	if err := s.db.CreateSnapshot(snapshot); err != nil {
		return nil, err
	}

	logrus.Infof("Snapshot saved: %s for file %s (%s)", snapshot.ID, fileID, commitMessage)
	return snapshot, nil
}

// List возвращает историю файла, новые снапшоты первыми
func (s *SnapshotService) List(roomID, fileID uuid.UUID) ([]models.Snapshot, error) {
	file, err := s.db.GetFile(roomID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return s.db.ListFileSnapshots(file.ID)
}

// Rollback откатывает файл к снапшоту. Текущее содержимое сначала уходит в
// историю с пометкой о предстоящем откате, так что сам откат обратим.
// Снапшот и перезапись выполняются одной транзакцией: наблюдатель между
// шагами не увидит промежуточного состояния.
func (s *SnapshotService) Rollback(roomID, fileID, snapshotID uuid.UUID, rolledBackBy string) (*RollbackResult, error) {
	var result *RollbackResult

	err := s.db.WithTx(func(tx *database.Database) error {
		file, err := tx.GetFile(roomID, fileID)
		if err != nil {
			return err
		}

		target, err := tx.GetSnapshot(file.ID, snapshotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}

		preRollback := &models.Snapshot{
			ID:            uuid.New(),
			FileID:        file.ID,
			Content:       file.Content,
			SavedBy:       rolledBackBy,
			CommitMessage: fmt.Sprintf("auto-save before rollback to %s", snapshotID),
			CreatedAt:     time.Now(),
		}
		if err := tx.CreateSnapshot(preRollback); err != nil {
			return err
		}

		ts, err := tx.SetFileContent(roomID, fileID, target.Content)
		if err != nil {
			return err
		}

		file.Content = target.Content
		file.UpdatedAt = ts
		result = &RollbackResult{File: file, RolledBackTo: target.ID}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	logrus.Infof("File %s rolled back to snapshot %s by %s", fileID, snapshotID, rolledBackBy)
	return result, nil
}
