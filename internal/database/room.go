package database

import (
	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateRoom(room *models.Room) error {
	return d.db.Create(room).Error
}

func (d *Database) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := d.db.Preload("Members").Preload("Invites").First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *Database) GetUserRooms(userID string) ([]models.Room, error) {
	var rooms []models.Room

	err := d.db.
		Joins("JOIN room_members rm ON rm.room_id = rooms.id").
		Where("rm.user_id = ?", userID).
		Order("rooms.created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	// Для каждой комнаты подгружаем участников
	for i := range rooms {
		if err := d.db.Model(&rooms[i]).Association("Members").Find(&rooms[i].Members); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

func (d *Database) AddUserToRoom(userID, roomID string) error {
	var user models.User
	var room models.Room

	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if err := d.db.First(&room, "id = ?", roomID).Error; err != nil {
		return err
	}

	return d.db.Model(&room).Association("Members").Append(&user)
}

// IsRoomMember проверяет, состоит ли пользователь в комнате
func (d *Database) IsRoomMember(roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.Table("room_members").
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddRoomInvites добавляет приглашения по email, дубликаты игнорируются
func (d *Database) AddRoomInvites(roomID uuid.UUID, emails []string) error {
	for _, email := range emails {
		invite := models.RoomInvite{RoomID: roomID, Email: email}
		if err := d.db.Where(&invite).FirstOrCreate(&invite).Error; err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) IsInvited(roomID uuid.UUID, email string) (bool, error) {
	var count int64
	err := d.db.Model(&models.RoomInvite{}).
		Where("room_id = ? AND email = ?", roomID, email).
		Count(&count).Error
	return count > 0, err
}

// DeleteRoom удаляет комнату вместе с файлами, снапшотами и сообщениями
func (d *Database) DeleteRoom(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Where("file_id IN (?)",
			tx.Model(&models.File{}).Select("id").Where("room_id = ?", id),
		).Delete(&models.Snapshot{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.File{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Message{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.RoomInvite{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Model(&room).Association("Members").Clear(); err != nil {
			return err
		}

		return tx.Delete(&room).Error
	})
}
