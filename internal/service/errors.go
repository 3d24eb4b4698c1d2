package service

import "errors"

// 房間協調器的錯誤分類
// 處理順序：輸入驗證錯誤在觸達存儲層之前被拒絕；
// 衝突類錯誤（代碼碰撞、重複加入）通過重試或冪等吸收處理；
// 權限錯誤永遠拒絕、不重試；生命週期錯誤對該房間是終態
var (
	ErrRoomNotFound        = errors.New("房間不存在")
	ErrRoomClosed          = errors.New("房間已關閉")
	ErrNotHost             = errors.New("只有房主可以執行此操作")
	ErrAllocationExhausted = errors.New("無法分配唯一的房間代碼")
	ErrInvalidInput        = errors.New("無效的輸入")
	ErrUserNotFound        = errors.New("用戶不存在")
)
