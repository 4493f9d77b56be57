package store

import (
	"errors"
	"path/filepath"
	"testing"

	"GoImageBoardClient/internal/model"

	"github.com/boltdb/bolt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("データベースのオープンに失敗しました: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putRaw(s *Store, key ThreadKey, n model.PostNumber, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(threadsBucket).Bucket(key.bucketName()).Bucket(postsBucket).Put(formatPostNumber(n), data)
	})
}

func testPost(number model.PostNumber, comment string, deleted bool) model.Post {
	b := &model.Builder{Number: number, Comment: comment, Timestamp: 1704067200000}
	if comment == "op" {
		b.SetOriginalPoster(true)
		b.Attachments = []model.Attachment{model.File{FileURI: "https://example.com/1.jpg", Size: 10}}
	}
	return b.Build(deleted)
}

func TestStore_SaveAndLoad(t *testing.T) {
	// Arrange
	s := openTestStore(t)
	key := ThreadKey{Board: "b", Thread: "100"}
	minor := model.PostNumber{Major: 101, Minor: 2}
	posts := []model.Post{
		testPost(model.NewPostNumber(100), "op", false),
		testPost(model.NewPostNumber(300), "third", false),
		testPost(minor, "minor", true),
		testPost(model.NewPostNumber(101), "second", false),
	}

	// Act
	if err := s.SaveThread(key, posts); err != nil {
		t.Fatalf("SaveThreadが失敗しました: %v", err)
	}
	loaded, skipped, err := s.LoadThread(key)

	// Assert
	if err != nil {
		t.Fatalf("LoadThreadが失敗しました: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("読み飛ばされたレスがあります: %v", skipped)
	}
	want := []model.PostNumber{model.NewPostNumber(100), model.NewPostNumber(101), minor, model.NewPostNumber(300)}
	if len(loaded) != len(want) {
		t.Fatalf("レス数 = %d, 期待値: %d", len(loaded), len(want))
	}
	for i, n := range want {
		if loaded[i].Number() != n {
			t.Errorf("%d 番目のレス番号 = %v, 期待値: %v", i, loaded[i].Number(), n)
		}
	}
	if !loaded[0].IsOriginalPoster() || len(loaded[0].Attachments()) != 1 {
		t.Errorf("親レスの内容が復元されていません: %+v", loaded[0])
	}
	if !loaded[2].IsDeleted() || loaded[2].Comment() != "minor" {
		t.Errorf("削除済みレスが復元されていません: deleted=%v comment=%q", loaded[2].IsDeleted(), loaded[2].Comment())
	}
	if loaded[1].IsDeleted() {
		t.Error("削除されていないレスが削除済みになっています")
	}
	if savedAt, err := s.SavedAt(key); err != nil || savedAt.IsZero() {
		t.Errorf("保存時刻が記録されていません: %v (err=%v)", savedAt, err)
	}
}

func TestStore_SaveReplacesContents(t *testing.T) {
	s := openTestStore(t)
	key := ThreadKey{Board: "b", Thread: "100"}

	if err := s.SaveThread(key, []model.Post{
		testPost(model.NewPostNumber(100), "op", false),
		testPost(model.NewPostNumber(101), "gone", true),
	}); err != nil {
		t.Fatalf("SaveThreadが失敗しました: %v", err)
	}
	if err := s.SaveThread(key, []model.Post{testPost(model.NewPostNumber(100), "op", false)}); err != nil {
		t.Fatalf("SaveThreadが失敗しました: %v", err)
	}

	loaded, _, err := s.LoadThread(key)
	if err != nil {
		t.Fatalf("LoadThreadが失敗しました: %v", err)
	}
	if len(loaded) != 1 || loaded[0].IsDeleted() {
		t.Errorf("保存内容が置き換えられていません: %+v", loaded)
	}
}

func TestStore_ThreadsAndDelete(t *testing.T) {
	s := openTestStore(t)
	a := ThreadKey{Board: "b", Thread: "100"}
	g := ThreadKey{Board: "g", Thread: "570368"}
	for _, key := range []ThreadKey{g, a} {
		if err := s.SaveThread(key, []model.Post{testPost(model.NewPostNumber(1), "x", false)}); err != nil {
			t.Fatalf("SaveThreadが失敗しました: %v", err)
		}
	}

	keys, err := s.Threads()
	if err != nil {
		t.Fatalf("Threadsが失敗しました: %v", err)
	}
	if len(keys) != 2 || keys[0] != a || keys[1] != g {
		t.Errorf("スレッド一覧が不正です: %v", keys)
	}

	if err := s.DeleteThread(a); err != nil {
		t.Fatalf("DeleteThreadが失敗しました: %v", err)
	}
	if _, _, err := s.LoadThread(a); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("削除したスレッドで ErrThreadNotFound が返されませんでした: %v", err)
	}
	if err := s.DeleteThread(a); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("存在しないスレッドの削除で ErrThreadNotFound が返されませんでした: %v", err)
	}
}

func TestStore_LoadSkipsCorruptRecord(t *testing.T) {
	s := openTestStore(t)
	key := ThreadKey{Board: "b", Thread: "100"}
	if err := s.SaveThread(key, []model.Post{
		testPost(model.NewPostNumber(100), "op", false),
		testPost(model.NewPostNumber(101), "broken", false),
	}); err != nil {
		t.Fatalf("SaveThreadが失敗しました: %v", err)
	}
	if err := putRaw(s, key, model.NewPostNumber(101), []byte("{not json")); err != nil {
		t.Fatalf("レコードの書き換えに失敗しました: %v", err)
	}

	loaded, skipped, err := s.LoadThread(key)
	if err != nil {
		t.Fatalf("LoadThreadが失敗しました: %v", err)
	}
	if len(loaded) != 1 || len(skipped) != 1 || skipped[0] != model.NewPostNumber(101) {
		t.Errorf("壊れたレコードが読み飛ばされていません: loaded=%d skipped=%v", len(loaded), skipped)
	}
}
