package response

import (
	"errors"

	"tms-graphql-api/internal/domain"
)

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Envelope 是 GraphQL 响应体；中间件拒绝请求时也用它，前端只需处理一种格式
type Envelope struct {
	Data   any     `json:"data"`
	Errors []Error `json:"errors,omitempty"`
}

// Fail 构造只含一个错误的响应（可以传自定义 msg 覆盖默认）
func Fail(code, customMsg string) Envelope {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return Envelope{Errors: []Error{{Message: msg, Extensions: map[string]any{"code": code}}}}
}

// FromError 领域错误使用其 Kind，其余按内部错误处理
func FromError(err error) Envelope {
	var de *domain.Error
	if errors.As(err, &de) {
		return Envelope{Errors: []Error{{Message: de.Error(), Extensions: de.Extensions()}}}
	}
	return Fail(CodeInternal, "")
}
