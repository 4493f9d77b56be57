// Package model は、スレッドを構成するレス(Post)とその識別子、添付ファイルの
// 不変データ型と、ローカル保存用のシリアライズ形式を定義します。
package model

import (
	"sort"
	"strconv"
	"strings"
)

// PostNumber は、レスを一意に識別する major.minor 形式の番号です。
// minor は同じ major を共有する分割レスなどを区別するために使われます。
type PostNumber struct {
	Major uint32
	Minor uint32
}

// NewPostNumber は、minor を 0 とした PostNumber を返します。
func NewPostNumber(major uint32) PostNumber {
	return PostNumber{Major: major}
}

// ParsePostNumber は、"123" や "123.4" 形式の文字列を解析します。
// 不正な入力の場合は入力値を含む *ValidationError を返します。
func ParsePostNumber(s string) (PostNumber, error) {
	n, ok := TryParsePostNumber(s)
	if !ok {
		return PostNumber{}, &ValidationError{Field: "post_number", Input: s, Reason: "digits['.' digits] 形式で major > 0 である必要があります"}
	}
	return n, nil
}

// TryParsePostNumber は ParsePostNumber のエラーを返さない版です。
func TryParsePostNumber(s string) (PostNumber, bool) {
	majorPart, minorPart, hasDot := strings.Cut(s, ".")
	major, ok := parseDigits(majorPart)
	if !ok || major == 0 {
		return PostNumber{}, false
	}
	var minor uint32
	if hasDot {
		// 2つ目のドットは parseDigits が数字以外として弾く
		minor, ok = parseDigits(minorPart)
		if !ok {
			return PostNumber{}, false
		}
	}
	return PostNumber{Major: major, Minor: minor}, true
}

// parseDigits は ASCII 数字のみで構成された uint32 を解析します。
func parseDigits(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Compare は、n と o を major、minor の順に比較し -1, 0, 1 を返します。
func (n PostNumber) Compare(o PostNumber) int {
	switch {
	case n.Major < o.Major:
		return -1
	case n.Major > o.Major:
		return 1
	case n.Minor < o.Minor:
		return -1
	case n.Minor > o.Minor:
		return 1
	default:
		return 0
	}
}

// Less は n が o より前に並ぶ場合に true を返します。
func (n PostNumber) Less(o PostNumber) bool {
	return n.Compare(o) < 0
}

// IsZero は、n が未設定(major == 0)かどうかを返します。
func (n PostNumber) IsZero() bool {
	return n.Major == 0
}

// String は、minor が 0 の場合は "major"、それ以外は "major.minor" を返します。
func (n PostNumber) String() string {
	if n.Minor == 0 {
		return strconv.FormatUint(uint64(n.Major), 10)
	}
	return strconv.FormatUint(uint64(n.Major), 10) + "." + strconv.FormatUint(uint64(n.Minor), 10)
}

// SortPostNumbers は numbers を昇順に並べ替えます。
func SortPostNumbers(numbers []PostNumber) {
	sort.Slice(numbers, func(i, j int) bool { return numbers[i].Less(numbers[j]) })
}

// ParseThreadNumber は、スレッド番号文字列(先頭0なしの数字列)を検証します。
func ParseThreadNumber(s string) (string, error) {
	if _, ok := TryParseThreadNumber(s); !ok {
		return "", &ValidationError{Field: "thread_number", Input: s, Reason: "先頭が0でない数字列である必要があります"}
	}
	return s, nil
}

// TryParseThreadNumber は ParseThreadNumber のエラーを返さない版です。
func TryParseThreadNumber(s string) (string, bool) {
	if s == "" || s[0] == '0' {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	return s, true
}
