package repository

import "errors"

// 通用的存儲層錯誤
var (
	// ErrNotFound 表示請求的記錄不存在
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示插入的數據違反了唯一約束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// 特定資源的錯誤
var (
	ErrRoomNotFound = ErrNotFound
	ErrUserNotFound = ErrNotFound
)
