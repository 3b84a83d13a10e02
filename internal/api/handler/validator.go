package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"academic-period/backend/internal/model"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
//
//	period_key: FIRST-2025 / second-2024 等规范学期标识
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("period_key", validatePeriodKey)
}

func validatePeriodKey(fl validator.FieldLevel) bool {
	_, ok := model.ParsePeriodKey(fl.Field().String())
	return ok
}
