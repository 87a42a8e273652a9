package service

import "errors"

// 业务错误。发送路径上的校验失败不触网，直接以这些错误返回。
var (
	ErrNoRoom       = errors.New("no room is open")
	ErrEmptyMessage = errors.New("message has no content")
	ErrBlocked      = errors.New("conversation is blocked")
	ErrRoomLocked   = errors.New("room is locked")
	ErrNotFound     = errors.New("message not found")
)
