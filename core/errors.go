package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - 摄入校验错误：VALIDATION（事件被拒绝，不入库）
//   - 资源不存在：NOT_FOUND（未知商品/用户）
//   - 冷启动信号：INSUFFICIENT_DATA（内部信号，由降级链消化，不对外暴露）
//   - 模型构建失败：MODEL_BUILD（记录日志，保留旧快照，不影响请求链路）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "VALIDATION"）
	Message string // 错误消息
	Module  string // 模块名称（如 "interaction", "recall", "service"）
	Field   string // 校验错误对应的字段（仅 VALIDATION 使用）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewValidationError 创建摄入校验错误，携带字段名与原因。
func NewValidationError(module, field, reason string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeValidation,
		Message: "validation: " + field + ": " + reason,
		Field:   field,
	}
}

// 错误代码常量
const (
	ErrorCodeValidation       = "VALIDATION"        // 摄入校验失败
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 数据不足（冷启动信号）
	ErrorCodeModelBuild       = "MODEL_BUILD"       // 模型构建失败
)

// 模块名称常量
const (
	ModuleInteraction = "interaction" // 行为日志模块
	ModuleCatalog     = "catalog"     // 商品目录模块
	ModuleModel       = "model"       // 派生模型模块
	ModuleRecall      = "recall"      // 召回/打分模块
	ModuleService     = "service"     // 服务编排模块
	ModuleStore       = "store"       // 存储模块
)

// IsValidation 检查错误是否为摄入校验失败
func IsValidation(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeValidation
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsInsufficientData 检查错误是否为冷启动信号
func IsInsufficientData(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInsufficientData
	}
	return false
}

// IsModelBuild 检查错误是否为模型构建失败
func IsModelBuild(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeModelBuild
	}
	return false
}

// 常用哨兵错误
var (
	// ErrInsufficientData 表示目标用户/物品缺少足够的行为数据。
	// 这是内部冷启动信号：上层通过降级链消化，绝不直接返回给调用方。
	ErrInsufficientData = NewDomainError(ModuleRecall, ErrorCodeInsufficientData, "recall: insufficient interaction data")

	// ErrProductNotFound 表示商品在目录中不存在
	ErrProductNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: product not found")
)
