package export

import (
	"errors"
	"fmt"
)

// 边界失败的类别，可通过 errors.Is 判断。
var (
	ErrSnapshot  = errors.New("快照失败")
	ErrSerialize = errors.New("序列化失败")
)

// Stage 标识失败发生的外部边界。
type Stage string

const (
	StageSnapshot  Stage = "snapshot"
	StageSerialize Stage = "serialize"
)

// BoundaryError 包装外部协作方（栅格化、文档序列化、资源读取）返回的错误。
type BoundaryError struct {
	Stage     Stage
	RequestID string
	Err       error
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("导出 %s 阶段失败（请求 %s）: %v", e.Stage, e.RequestID, e.Err)
}

func (e *BoundaryError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrSnapshot) 等判断按阶段匹配。
func (e *BoundaryError) Is(target error) bool {
	switch target {
	case ErrSnapshot:
		return e.Stage == StageSnapshot
	case ErrSerialize:
		return e.Stage == StageSerialize
	default:
		return false
	}
}
