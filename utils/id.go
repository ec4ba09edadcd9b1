package utils

import (
	"github.com/google/uuid"
)

// GenerateRequestID 生成请求ID
func GenerateRequestID() string {
	return uuid.NewString()
}
