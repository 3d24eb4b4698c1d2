// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 這個包包含了身份驗證（JWT）和請求限流（Redis）兩個中間件，
// 用於在請求到達 handler 之前執行跨請求的檢查。
package middleware
