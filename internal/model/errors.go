package model

import "fmt"

// ValidationError は、番号文字列や添付ファイルの必須フィールドなど、
// 入力値の検証に失敗したことを表します。
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("不正な %s '%s': %s", e.Field, e.Input, e.Reason)
}
