package service

import "errors"

// カスタムエラー定義
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomAlreadyExists    = errors.New("room already exists")
	ErrRoleAlreadyTaken     = errors.New("role already taken")
	ErrRoomIDExhausted      = errors.New("failed to generate unique room code after multiple attempts")
	ErrNotInRoom            = errors.New("not in a room")
	ErrNavigationNotAllowed = errors.New("only the controller or a teacher can navigate")
)
