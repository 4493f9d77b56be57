package core

import (
	"testing"

	"GoImageBoardClient/internal/model"
)

func post(n uint32, comment string) model.Post {
	return (&model.Builder{Number: model.NewPostNumber(n), Comment: comment}).Build(false)
}

func numbers(posts []model.Post) []model.PostNumber {
	out := make([]model.PostNumber, len(posts))
	for i, p := range posts {
		out[i] = p.Number()
	}
	return out
}

func TestDiffPosts(t *testing.T) {
	testCases := []struct {
		name        string
		old         []model.Post
		current     []model.Post
		wantAdded   int
		wantRemoved int
		wantChanged int
	}{
		{name: "初回", old: nil, current: []model.Post{post(1, "a"), post(2, "b")}, wantAdded: 2},
		{name: "変化なし", old: []model.Post{post(1, "a")}, current: []model.Post{post(1, "a")}},
		{name: "本文の変更", old: []model.Post{post(1, "a")}, current: []model.Post{post(1, "b")}, wantChanged: 1},
		{name: "削除状態の変更", old: []model.Post{post(1, "a")}, current: []model.Post{model.NewBuilder(post(1, "a")).Build(true)}, wantChanged: 1},
		{name: "追加と削除", old: []model.Post{post(1, "a"), post(2, "b")}, current: []model.Post{post(1, "a"), post(3, "c")}, wantAdded: 1, wantRemoved: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := DiffPosts(tc.old, tc.current)
			if len(d.Added) != tc.wantAdded || len(d.Removed) != tc.wantRemoved || len(d.Changed) != tc.wantChanged {
				t.Errorf("差分 = %+v, 期待値: added=%d removed=%d changed=%d", d, tc.wantAdded, tc.wantRemoved, tc.wantChanged)
			}
			if d.IsEmpty() != (tc.wantAdded+tc.wantRemoved+tc.wantChanged == 0) {
				t.Errorf("IsEmpty = %v が差分と一致しません", d.IsEmpty())
			}
		})
	}
}

func TestDiffPosts_SortedNumbers(t *testing.T) {
	d := DiffPosts(nil, []model.Post{post(30, ""), post(10, ""), post(20, "")})
	want := []model.PostNumber{model.NewPostNumber(10), model.NewPostNumber(20), model.NewPostNumber(30)}
	for i, n := range want {
		if d.Added[i] != n {
			t.Errorf("Added[%d] = %v, 期待値: %v", i, d.Added[i], n)
		}
	}
}

func TestMergeDeleted(t *testing.T) {
	// Arrange
	old := []model.Post{post(1, "op"), post(2, "gone"), post(4, "also gone")}
	current := []model.Post{post(1, "op"), post(3, "new")}

	// Act
	merged := MergeDeleted(old, current)

	// Assert
	got := numbers(merged)
	want := []model.PostNumber{model.NewPostNumber(1), model.NewPostNumber(2), model.NewPostNumber(3), model.NewPostNumber(4)}
	if len(got) != len(want) {
		t.Fatalf("件数 = %d, 期待値: %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%d 番目 = %v, 期待値: %v", i, got[i], want[i])
		}
	}
	if merged[0].IsDeleted() || !merged[1].IsDeleted() || merged[2].IsDeleted() || !merged[3].IsDeleted() {
		t.Errorf("削除状態が不正です: %v %v %v %v", merged[0].IsDeleted(), merged[1].IsDeleted(), merged[2].IsDeleted(), merged[3].IsDeleted())
	}
	if merged[1].Comment() != "gone" {
		t.Errorf("削除されたレスの内容が失われました: %q", merged[1].Comment())
	}
	if len(current) != 2 {
		t.Error("current が変更されました")
	}
}

func TestSessionState_String(t *testing.T) {
	if StateGone.String() != "スレッド消失" || SessionState(99).String() != "不明" {
		t.Errorf("状態の文字列が不正です: %s, %s", StateGone, SessionState(99))
	}
}
