package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePostNumber_RoundTrip(t *testing.T) {
	for _, s := range []string{"1", "123", "4294967295", "10.1", "7.42"} {
		n, err := ParsePostNumber(s)
		if err != nil {
			t.Fatalf("'%s' の解析で予期せぬエラーが発生しました: %v", s, err)
		}
		if n.String() != s {
			t.Errorf("往復変換の結果が異なります。期待値: %s, 実際値: %s", s, n.String())
		}
	}
}

func TestParsePostNumber_Invalid(t *testing.T) {
	for _, s := range []string{"", "1.2.3", "-1", "0", "0.5", "1.", ".1", "abc", "12a", "+1", "1 ", "4294967296"} {
		if n, ok := TryParsePostNumber(s); ok {
			t.Errorf("'%s' は不正な入力として扱われるべきです。実際値: %v", s, n)
		}

		_, err := ParsePostNumber(s)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("'%s' に対して ValidationError が返されませんでした: %v", s, err)
		}
		if !strings.Contains(err.Error(), "'"+s+"'") {
			t.Errorf("エラーメッセージに入力値が含まれていません: %v", err)
		}
	}
}

func TestPostNumber_Compare(t *testing.T) {
	ordered := []PostNumber{{1, 0}, {1, 1}, {1, 2}, {2, 0}, {10, 0}, {10, 5}}
	for i, a := range ordered {
		for j, b := range ordered {
			got := a.Compare(b)
			var want int
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("%v.Compare(%v) = %d, 期待値: %d", a, b, got, want)
			}
			if a.Less(b) != (i < j) {
				t.Errorf("%v.Less(%v) が不正です", a, b)
			}
		}
	}
}

func TestSortPostNumbers(t *testing.T) {
	numbers := []PostNumber{{5, 0}, {1, 3}, {1, 0}, {3, 1}}
	SortPostNumbers(numbers)
	want := "1 1.3 3.1 5"
	var got []string
	for _, n := range numbers {
		got = append(got, n.String())
	}
	if strings.Join(got, " ") != want {
		t.Errorf("並び順が不正です。期待値: %s, 実際値: %v", want, got)
	}
}

func TestParseThreadNumber(t *testing.T) {
	if _, err := ParseThreadNumber("1234567"); err != nil {
		t.Errorf("正しいスレッド番号がエラーになりました: %v", err)
	}
	for _, s := range []string{"", "0123", "12.3", "abc"} {
		if _, ok := TryParseThreadNumber(s); ok {
			t.Errorf("'%s' は不正なスレッド番号として扱われるべきです", s)
		}
		if _, err := ParseThreadNumber(s); err == nil {
			t.Errorf("'%s' に対してエラーが返されませんでした", s)
		}
	}
}
