package reconcile

import "fmt"

// SchemaConflictError 两个变体对同一概念给出了无法调和的域
// 典型情况：封闭枚举的取值集不相交
// 冲突不会中断调和，全部累积进结果里统一上报
type SchemaConflictError struct {
	Table  string `json:"table"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema conflict: %s.%s: %s", e.Table, e.Field, e.Detail)
}
