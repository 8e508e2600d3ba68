package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分级（见各 Code 常量）：
//   - INVALID_INPUT / CAPACITY 属于致命错误，直接返回给调用方
//   - 单一来源失败、模型不可用等属于降级事件，不会以错误形式上抛
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "CAPACITY"）
	Message string // 错误消息
	Module  string // 模块名称（如 "source", "engine", "profile"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeInvalidInput    = "INVALID_INPUT"    // 请求校验失败
	ErrorCodeCapacity        = "CAPACITY"         // 并发请求超限
	ErrorCodeDuplicateSource = "DUPLICATE_SOURCE" // 来源重复注册
	ErrorCodeNotFound        = "NOT_FOUND"        // 资源不存在
	ErrorCodeUnavailable     = "UNAVAILABLE"      // 服务不可用
	ErrorCodeInternalError   = "INTERNAL_ERROR"   // 内部错误
)

// 模块名称常量
const (
	ModuleSource  = "source"  // 来源模块
	ModuleRank    = "rank"    // 排序模块
	ModuleProfile = "profile" // 画像模块
	ModuleEngine  = "engine"  // 编排模块
	ModuleStore   = "store"   // 存储模块
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsValidation 检查错误是否为请求校验失败。
func IsValidation(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsCapacity 检查错误是否为并发超限。
func IsCapacity(err error) bool { return hasCode(err, ErrorCodeCapacity) }

// IsDuplicateSource 检查错误是否为来源重复注册。
func IsDuplicateSource(err error) bool { return hasCode(err, ErrorCodeDuplicateSource) }

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// ErrStoreNotFound 表示存储中不存在对应 key。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "key not found")

// ErrStoreNotSupported 表示存储后端不支持该操作。
var ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeUnavailable, "operation not supported")
