package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule      = "module"
	FieldNameComponent   = "component"
	FieldNameOperation   = "op"
	FieldNameOperationID = "opID"
	FieldNameName        = "name"
	FieldNameSlot        = "slot"
	FieldNamePath        = "path"
	FieldNameStage       = "stage"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldOperation 标记 save/load/delete 等操作。
func FieldOperation(op string) zap.Field {
	return zap.String(FieldNameOperation, op)
}

// FieldName 为存档的逻辑名（不含扩展名）。
func FieldName(name string) zap.Field {
	return zap.String(FieldNameName, name)
}

func FieldSlot(slot int) zap.Field {
	return zap.Int(FieldNameSlot, slot)
}

func FieldPath(path string) zap.Field {
	return zap.String(FieldNamePath, path)
}

// FieldStage 标记出错所在的流水线阶段。
func FieldStage(stage string) zap.Field {
	return zap.String(FieldNameStage, stage)
}
