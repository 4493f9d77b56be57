// Package store は、取得したスレッドのレスを bolt データベースに保存します。
// スレッドごとに "板/スレッド番号" のバケットを作り、レスはシリアライズ済みの形式で格納します。
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"GoImageBoardClient/internal/model"

	"github.com/boltdb/bolt"
)

var (
	threadsBucket = []byte("threads")
	postsBucket   = []byte("posts")
	deletedBucket = []byte("deleted")
	metaBucket    = []byte("meta")
	savedAtKey    = []byte("saved_at")
)

// ErrThreadNotFound は、指定されたスレッドが保存されていない場合に返されます。
var ErrThreadNotFound = errors.New("スレッドが保存されていません")

// ThreadKey は保存されているスレッドを識別します。
type ThreadKey struct {
	Board  string
	Thread string
}

func (k ThreadKey) String() string {
	return k.Board + "/" + k.Thread
}

func (k ThreadKey) bucketName() []byte {
	return []byte(k.String())
}

// Store は bolt データベースのラッパーです。
type Store struct {
	db *bolt.DB
}

// Open は path のデータベースを開き、必要なバケットを作成します。
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗しました (path=%s): %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(threadsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("バケットの作成に失敗しました (path=%s): %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close はデータベースを閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}

// formatPostNumber は、キーの辞書順がレス番号の順序と一致するよう
// major と minor をビッグエンディアンで連結します。
func formatPostNumber(n model.PostNumber) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[:4], n.Major)
	binary.BigEndian.PutUint32(buf[4:], n.Minor)
	return buf
}

func parsePostNumber(key []byte) (model.PostNumber, bool) {
	if len(key) != 8 {
		return model.PostNumber{}, false
	}
	n := model.PostNumber{
		Major: binary.BigEndian.Uint32(key[:4]),
		Minor: binary.BigEndian.Uint32(key[4:]),
	}
	return n, !n.IsZero()
}

// SaveThread は、key のスレッドの内容を posts で置き換えます。
func (s *Store) SaveThread(key ThreadKey, posts []model.Post) error {
	encoded := make([][]byte, len(posts))
	for i, p := range posts {
		data, err := model.MarshalPost(p)
		if err != nil {
			return fmt.Errorf("レスのシリアライズに失敗しました (thread=%s, post=%s): %w", key, p.Number(), err)
		}
		encoded[i] = data
	}

	err := s.db.Batch(func(tx *bolt.Tx) error {
		root := tx.Bucket(threadsBucket)
		if root.Bucket(key.bucketName()) != nil {
			if err := root.DeleteBucket(key.bucketName()); err != nil {
				return err
			}
		}
		buc, err := root.CreateBucket(key.bucketName())
		if err != nil {
			return err
		}
		postsBuc, err := buc.CreateBucket(postsBucket)
		if err != nil {
			return err
		}
		deletedBuc, err := buc.CreateBucket(deletedBucket)
		if err != nil {
			return err
		}
		for i, p := range posts {
			k := formatPostNumber(p.Number())
			if err := postsBuc.Put(k, encoded[i]); err != nil {
				return err
			}
			if p.IsDeleted() {
				if err := deletedBuc.Put(k, nil); err != nil {
					return err
				}
			}
		}
		meta, err := buc.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		savedAt, _ := time.Now().MarshalBinary()
		return meta.Put(savedAtKey, savedAt)
	})
	if err != nil {
		return fmt.Errorf("スレッドの保存に失敗しました (thread=%s, posts=%d): %w", key, len(posts), err)
	}
	return nil
}

// LoadThread は、key のスレッドのレスを番号順に返します。
// 読み込めないレコードは読み飛ばし、その番号を skipped に含めて返します。
func (s *Store) LoadThread(key ThreadKey) (posts []model.Post, skipped []model.PostNumber, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		buc := tx.Bucket(threadsBucket).Bucket(key.bucketName())
		if buc == nil {
			return ErrThreadNotFound
		}
		deleted := buc.Bucket(deletedBucket)
		return buc.Bucket(postsBucket).ForEach(func(k, v []byte) error {
			n, ok := parsePostNumber(k)
			if !ok {
				return nil
			}
			p, err := model.UnmarshalPost(n, deleted.Get(k) != nil, v)
			if err != nil {
				skipped = append(skipped, n)
				return nil
			}
			posts = append(posts, p)
			return nil
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("スレッドの読み込みに失敗しました (thread=%s): %w", key, err)
	}
	return posts, skipped, nil
}

// SavedAt は、key のスレッドが最後に保存された時刻を返します。
func (s *Store) SavedAt(key ThreadKey) (time.Time, error) {
	var savedAt time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		buc := tx.Bucket(threadsBucket).Bucket(key.bucketName())
		if buc == nil {
			return ErrThreadNotFound
		}
		meta := buc.Bucket(metaBucket)
		if meta == nil {
			return nil
		}
		return savedAt.UnmarshalBinary(meta.Get(savedAtKey))
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("保存時刻の読み込みに失敗しました (thread=%s): %w", key, err)
	}
	return savedAt, nil
}

// DeleteThread は key のスレッドを削除します。
func (s *Store) DeleteThread(key ThreadKey) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(threadsBucket).DeleteBucket(key.bucketName())
		if err == bolt.ErrBucketNotFound {
			return ErrThreadNotFound
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("スレッドの削除に失敗しました (thread=%s): %w", key, err)
	}
	return nil
}

// Threads は保存されている全スレッドを名前順に返します。
func (s *Store) Threads() ([]ThreadKey, error) {
	var keys []ThreadKey
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(threadsBucket).ForEach(func(k, v []byte) error {
			// v が nil のものだけがネストしたバケット
			if v != nil {
				return nil
			}
			board, thread, ok := strings.Cut(string(k), "/")
			if !ok {
				return nil
			}
			keys = append(keys, ThreadKey{Board: board, Thread: thread})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("スレッド一覧の取得に失敗しました: %w", err)
	}
	return keys, nil
}
