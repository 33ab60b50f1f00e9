package services

import (
	"net/http"

	"multishop-server/common"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// internalErr 业务错误原样返回，驱动的未找到与唯一索引冲突转为 404/409，其余记录上下文后包装为 500
func internalErr(log *logrus.Entry, op string, fields logrus.Fields, err error) error {
	if _, ok := common.As(err); ok {
		return err
	}
	if mapped, ok := common.As(common.FromMongo(err, "记录不存在")); ok && mapped.StatusCode < http.StatusInternalServerError {
		return mapped
	}
	log.WithFields(fields).WithFields(logrus.Fields{"op": op, "error": err}).Error("操作失败")
	return common.Internal("服务器内部错误", err)
}

func parseID(id, msg string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.Validation(msg, nil)
	}
	return oid, nil
}
