package service

import (
	"crypto/rand"
)

// 房間代碼使用完整的 0-9A-Z 字母表（36 個字符），長度 6，
// 代碼空間約 21 億，不排除易混淆字符
const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6
)

// CodeAllocator 生成可分享的短房間代碼
// 生成本身是純隨機的，不保證唯一，唯一性由調用方查詢存儲層確認
type CodeAllocator interface {
	Allocate() string
}

type randomCodeAllocator struct{}

func NewCodeAllocator() CodeAllocator {
	return randomCodeAllocator{}
}

func (randomCodeAllocator) Allocate() string {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		// 熵源不可用屬於進程級致命錯誤，不作為可恢復錯誤處理
		panic("crypto/rand unavailable: " + err.Error())
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
