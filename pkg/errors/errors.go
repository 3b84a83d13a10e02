package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStorageCorrupted 持久化文件无法解析，需要人工介入
var ErrStorageCorrupted = errors.New("存储文件已损坏，请联系管理员处理")
