package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNoSuffixLen = 5

// GenerateOrderNo ORD-<毫秒时间戳>-<5位大写随机串>
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:orderNoSuffixLen])
}
