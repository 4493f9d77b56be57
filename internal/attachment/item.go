package attachment

import (
	"sync"

	"GoImageBoardClient/internal/model"
)

// Item は表示用に分類された添付ファイルです。実装は *FileItem と *EmbeddedItem のみです。
type Item interface {
	PostNumber() model.PostNumber
	Type() Type
	GeneralType() GeneralType
	FileURI() string
	ThumbnailURI() string
	FileName() string
	CanDownloadToStorage() bool
	IsShowInGallery() bool
	// ThumbnailKey はサムネイルのキャッシュキーを返します。初回の計算結果が以後も返されます。
	ThumbnailKey() string
	isItem()
}

// thumbnailKey は初回の計算結果を保持する単一代入セルです。
type thumbnailKey struct {
	once sync.Once
	key  string
}

func (k *thumbnailKey) get(keys ThumbnailKeyResolver, uri string) string {
	k.once.Do(func() {
		if uri == "" {
			return
		}
		if keys != nil {
			if key, ok := keys.CachedKeyFor(uri); ok {
				k.key = key
				return
			}
		}
		k.key = DigestKey(uri)
	})
	return k.key
}

// FileItem は、掲示板にアップロードされたファイルの項目です。
type FileItem struct {
	number       model.PostNumber
	file         model.File
	fileURI      string
	thumbnailURI string
	fileName     string
	extension    string
	typ          Type
	keys         ThumbnailKeyResolver
	key          thumbnailKey
}

func (i *FileItem) isItem() {}

func (i *FileItem) PostNumber() model.PostNumber { return i.number }
func (i *FileItem) Type() Type                   { return i.typ }
func (i *FileItem) GeneralType() GeneralType     { return GeneralTypeFile }
func (i *FileItem) FileURI() string              { return i.fileURI }
func (i *FileItem) ThumbnailURI() string         { return i.thumbnailURI }
func (i *FileItem) FileName() string             { return i.fileName }
func (i *FileItem) Extension() string            { return i.extension }
func (i *FileItem) OriginalName() string         { return i.file.OriginalName }
func (i *FileItem) Size() int64                  { return i.file.Size }
func (i *FileItem) Width() int                   { return i.file.Width }
func (i *FileItem) Height() int                  { return i.file.Height }
func (i *FileItem) IsSpoiler() bool              { return i.file.Spoiler }
func (i *FileItem) CanDownloadToStorage() bool   { return true }

func (i *FileItem) IsShowInGallery() bool {
	return i.typ == TypeImage || i.typ == TypeVideo
}

func (i *FileItem) ThumbnailKey() string {
	return i.key.get(i.keys, i.thumbnailURI)
}

// EmbeddedItem は、外部サービスのメディアを指す項目です。
type EmbeddedItem struct {
	number       model.PostNumber
	embedded     model.Embedded
	fromComment  bool
	fileURI      string
	thumbnailURI string
	fileName     string
	keys         ThumbnailKeyResolver
	key          thumbnailKey
}

func (i *EmbeddedItem) isItem() {}

func (i *EmbeddedItem) PostNumber() model.PostNumber     { return i.number }
func (i *EmbeddedItem) FileURI() string                  { return i.fileURI }
func (i *EmbeddedItem) ThumbnailURI() string             { return i.thumbnailURI }
func (i *EmbeddedItem) FileName() string                 { return i.fileName }
func (i *EmbeddedItem) EmbeddedType() string             { return i.embedded.EmbeddedType }
func (i *EmbeddedItem) ContentType() model.ContentType   { return i.embedded.ContentType }
func (i *EmbeddedItem) FromComment() bool                { return i.fromComment }
func (i *EmbeddedItem) CanDownloadToStorage() bool       { return i.embedded.CanDownload }
func (i *EmbeddedItem) Embedded() model.Embedded         { return i.embedded }

func (i *EmbeddedItem) Type() Type {
	switch i.embedded.ContentType {
	case model.ContentTypeAudio:
		return TypeAudio
	case model.ContentTypeVideo:
		return TypeVideo
	default:
		return TypeFile
	}
}

func (i *EmbeddedItem) GeneralType() GeneralType {
	if i.fromComment {
		return GeneralTypeLink
	}
	return GeneralTypeFile
}

func (i *EmbeddedItem) IsShowInGallery() bool {
	t := i.Type()
	return t == TypeImage || t == TypeVideo
}

func (i *EmbeddedItem) ThumbnailKey() string {
	return i.key.get(i.keys, i.thumbnailURI)
}
