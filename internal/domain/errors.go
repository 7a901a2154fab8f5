package domain

import (
	"errors"
	"fmt"
)

// Kind 对外暴露为 GraphQL extensions.code
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindQueryTooComplex    Kind = "QUERY_TOO_COMPLEX"
	KindBadInput           Kind = "BAD_USER_INPUT"
)

// ErrDuplicate 由仓储层在唯一约束冲突时返回
var ErrDuplicate = errors.New("duplicate key")

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Extensions is picked up by graphql-go when the error is returned from a resolver.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Kind)}
}

func Unauthenticated(msg string) error    { return &Error{Kind: KindUnauthenticated, Msg: msg} }
func Forbidden(msg string) error          { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error           { return &Error{Kind: KindNotFound, Msg: msg} }
func InvalidCredentials(msg string) error { return &Error{Kind: KindInvalidCredentials, Msg: msg} }
func AlreadyExists(msg string) error      { return &Error{Kind: KindAlreadyExists, Msg: msg} }
func BadInput(msg string, err error) error {
	return &Error{Kind: KindBadInput, Msg: msg, Err: err}
}

func QueryTooComplex(cost, max int) error {
	return &Error{
		Kind: KindQueryTooComplex,
		Msg:  fmt.Sprintf("query is too complex: %d. Maximum allowed complexity: %d", cost, max),
	}
}

// KindOf 返回错误分类；未分类（存储层等）返回空串
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
