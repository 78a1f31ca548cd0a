package service

import (
	"errors"
	"fmt"
)

// 错误种类：校验失败、执行时库存不足、记录不存在。
// 所有写操作要么全部生效要么完全不生效，失败后由外部工作流决定是否
// 重新校验可用性后重试，本层不做自动重试。
var (
	// ErrNotFound 物料/批次/工序进度不存在
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock 执行分配时库存不足（与其他订单竞争导致）
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError 输入校验失败，不产生任何变更
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
