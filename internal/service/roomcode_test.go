package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAllocator(t *testing.T) {
	alloc := NewCodeAllocator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := alloc.Allocate()
		assert.Len(t, code, codeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q in code %q", c, code)
		}
		seen[code] = true
	}

	// 100 次抽取在約 21 億的代碼空間中不可能全部相同
	assert.Greater(t, len(seen), 1)
}
