package services

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrForbidden        = errors.New("forbidden")
	ErrNoLLMToken       = errors.New("no LLM API token saved")
)
