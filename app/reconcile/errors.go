package reconcile

import "errors"

var (
	// ErrInvalidInput 调用前提不成立，属于编程错误，不重试
	ErrInvalidInput = errors.New("无效输入")
	// ErrNoRange 模板无法解析出有效的集数范围
	ErrNoRange = errors.New("模板没有可用的集数范围")
)
