package response

// 非解析器产生的错误码，与 domain.Kind 一起出现在 extensions.code
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeServerBusy       = "SERVER_BUSY"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// CodeMsgMap 默认提示
var CodeMsgMap = map[string]string{
	CodeBadRequest:       "Bad Request",
	CodeParseFailed:      "Syntax Error",
	CodeValidationFailed: "Validation Failed",
	CodeTooManyRequests:  "Too Many Requests",
	CodeServerBusy:       "Server Busy",
	CodePayloadTooLarge:  "Request Body Too Large",
	CodeTimeout:          "Timeout",
	CodeInternal:         "Internal Server Error",
}
