package attachment

import (
	"GoImageBoardClient/internal/model"
)

// Obtainer は、レスから表示用項目の一覧を組み立てます。
// Locator が nil の場合は PlainLocator として振る舞います。
type Obtainer struct {
	Locator  Locator
	Matchers []EmbedMatcher
	Keys     ThumbnailKeyResolver
}

func (o *Obtainer) locator() Locator {
	if o.Locator == nil {
		return PlainLocator{}
	}
	return o.Locator
}

// Obtain は、構造的な添付ファイルを元の順序で並べ、その後に本文から抽出した埋め込みを
// マッチャーの登録順・本文中の出現順で続けた一覧を返します。
// 項目が1つもない場合は nil を返します(空スライスとは区別されます)。
func (o *Obtainer) Obtain(post model.Post) []Item {
	loc := o.locator()
	var items []Item
	for _, a := range post.Attachments() {
		switch a := a.(type) {
		case model.File:
			if item := o.newFileItem(loc, post.Number(), a); item != nil {
				items = append(items, item)
			}
		case model.Embedded:
			if item := o.newEmbeddedItem(loc, post.Number(), a, false); item != nil {
				items = append(items, item)
			}
		}
	}
	comment := post.Comment()
	if comment != "" {
		for _, m := range o.Matchers {
			for _, code := range m.FindEmbedCodes(loc, comment) {
				embedded, err := m.ResolveEmbed(loc, code)
				if err != nil {
					continue
				}
				if item := o.newEmbeddedItem(loc, post.Number(), embedded, true); item != nil {
					items = append(items, item)
				}
			}
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func (o *Obtainer) newFileItem(loc Locator, number model.PostNumber, f model.File) *FileItem {
	if f.FileURI == "" && f.ThumbnailURI == "" {
		return nil
	}
	fileURI := normalizeURI(loc, f.FileURI)
	thumbnailURI := normalizeURI(loc, f.ThumbnailURI)

	nameSource := fileURI
	if nameSource == "" {
		nameSource = thumbnailURI
	}
	fileName := loc.CreateAttachmentFileName(nameSource, "")
	ext := NormalizeExtension(fileName)
	typ := TypeForExtension(ext)
	if typ != TypeImage && typ != TypeVideo {
		thumbnailURI = ""
	}
	return &FileItem{
		number:       number,
		file:         f,
		fileURI:      fileURI,
		thumbnailURI: thumbnailURI,
		fileName:     fileName,
		extension:    ext,
		typ:          typ,
		keys:         o.Keys,
	}
}

func (o *Obtainer) newEmbeddedItem(loc Locator, number model.PostNumber, e model.Embedded, fromComment bool) *EmbeddedItem {
	if e.FileURI == "" {
		return nil
	}
	fileURI := normalizeURI(loc, e.FileURI)
	return &EmbeddedItem{
		number:       number,
		embedded:     e,
		fromComment:  fromComment,
		fileURI:      fileURI,
		thumbnailURI: normalizeURI(loc, e.ThumbnailURI),
		fileName:     loc.CreateAttachmentFileName(fileURI, e.ForcedName),
		keys:         o.Keys,
	}
}

func normalizeURI(loc Locator, uri string) string {
	if uri == "" {
		return ""
	}
	return loc.Convert(loc.FixRelativeFileURI(uri))
}
