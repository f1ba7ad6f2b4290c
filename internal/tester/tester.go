// Package tester собирает общие хелперы для тестов: sqlite база во временной
// директории и минимальный посев данных.
package tester

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB поднимает чистую sqlite базу с полной схемой
func NewTestDB(t *testing.T) *database.Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return database.NewDatabase(db)
}

func CreateUser(t *testing.T, db *database.Database, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: "test-hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.SaveUser(user))

	return user
}

func CreateRoom(t *testing.T, db *database.Database, creator *models.User, name string) *models.Room {
	t.Helper()

	room := &models.Room{
		ID:        uuid.New(),
		Name:      name,
		CreatedBy: creator.ID,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateRoom(room))
	require.NoError(t, db.AddUserToRoom(creator.ID.String(), room.ID.String()))
	require.NoError(t, db.AddRoomInvites(room.ID, []string{creator.Email}))

	return room
}

func CreateFile(t *testing.T, db *database.Database, room *models.Room, name, content string) *models.File {
	t.Helper()

	now := time.Now()
	file := &models.File{
		ID:        uuid.New(),
		RoomID:    room.ID,
		Name:      name,
		Language:  "javascript",
		Content:   content,
		CreatedBy: room.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.CreateFile(file))

	return file
}
