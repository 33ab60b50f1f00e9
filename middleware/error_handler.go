package middleware

import (
	"errors"

	"multishop-server/common"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler 把处理器返回的错误统一渲染为 {success:false, message, code, details}
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := toAppError(err)
		if appErr.StatusCode >= fiber.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"method":     c.Method(),
				"path":       c.Path(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
				"error":      err,
			}).Error("请求处理失败")
		}
		body := fiber.Map{
			"success": false,
			"message": appErr.Message,
			"code":    appErr.Code,
		}
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
		return c.Status(appErr.StatusCode).JSON(body)
	}
}

func toAppError(err error) *common.Error {
	if e, ok := common.As(err); ok {
		return e
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := common.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = common.CodeNotFound
		case fe.Code == fiber.StatusUnprocessableEntity, fe.Code == fiber.StatusBadRequest:
			code = common.CodeValidation
		case fe.Code < fiber.StatusInternalServerError:
			code = common.ErrorCode("http_error")
		}
		return common.NewError(code, fe.Message, fe.Code, nil)
	}
	return common.Internal("服务器内部错误", err)
}
