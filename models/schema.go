package models

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"multishop-server/common"
	"multishop-server/utils"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError 单个字段的校验失败信息
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		// 错误里使用落库字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("bson"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return IsOrderStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("shop_status", func(fl validator.FieldLevel) bool {
			return IsShopStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return utils.IsValidPhone(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate 写库前按结构体标签校验，失败返回 400 并附带字段明细
func Validate(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Internal("数据校验失败", err)
	}
	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag(), Param: fe.Param()})
	}
	return common.Validation("数据验证失败", details)
}

// fieldPath 去掉命名空间开头的结构体名
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
