package attachment

import (
	"errors"
	"regexp"
	"sync"
	"testing"

	"GoImageBoardClient/internal/model"
)

// fakeMatcher は本文中の "[embed:xxx]" を埋め込みとして扱います。
type fakeMatcher struct {
	kind    string
	pattern *regexp.Regexp
	content model.ContentType
}

func (m fakeMatcher) FindEmbedCodes(_ Locator, comment string) []string {
	var codes []string
	for _, match := range m.pattern.FindAllStringSubmatch(comment, -1) {
		codes = append(codes, match[1])
	}
	return codes
}

func (m fakeMatcher) ResolveEmbed(_ Locator, code string) (model.Embedded, error) {
	if code == "broken" {
		return model.Embedded{}, errors.New("broken")
	}
	return model.NewEmbedded(model.Embedded{
		FileURI:      "https://" + m.kind + ".example/" + code,
		ThumbnailURI: "https://" + m.kind + ".example/" + code + ".jpg",
		EmbeddedType: m.kind,
		ContentType:  m.content,
	})
}

type mapKeys map[string]string

func (k mapKeys) CachedKeyFor(uri string) (string, bool) {
	v, ok := k[uri]
	return v, ok
}

func buildPost(comment string, attachments ...model.Attachment) model.Post {
	b := &model.Builder{Number: model.NewPostNumber(100), Comment: comment, Attachments: attachments}
	return b.Build(false)
}

func TestObtain_ImageFile(t *testing.T) {
	// Arrange
	post := buildPost("", model.File{FileURI: "https://example.com/b/src/a.jpg", ThumbnailURI: "https://example.com/b/thumb/as.jpg"})
	var o Obtainer

	// Act
	items := o.Obtain(post)

	// Assert
	if len(items) != 1 {
		t.Fatalf("項目数が不正です: %d", len(items))
	}
	item := items[0]
	if item.Type() != TypeImage || item.GeneralType() != GeneralTypeFile {
		t.Errorf("分類が不正です: %v/%v", item.Type(), item.GeneralType())
	}
	if item.FileName() != "a.jpg" || item.PostNumber() != model.NewPostNumber(100) {
		t.Errorf("ファイル名または番号が不正です: %s %v", item.FileName(), item.PostNumber())
	}
	if !item.IsShowInGallery() || !item.CanDownloadToStorage() {
		t.Error("画像はギャラリー表示・保存可能であるべきです")
	}
	if item.ThumbnailURI() == "" {
		t.Error("画像のサムネイルは保持されるべきです")
	}
}

func TestObtain_ClassifiesByExtension(t *testing.T) {
	cases := []struct {
		uri       string
		want      Type
		wantThumb bool
	}{
		{"/src/1.JPEG", TypeImage, true},
		{"/src/1.webm", TypeVideo, true},
		{"/src/1.mp3", TypeAudio, false},
		{"/src/1.zip", TypeFile, false},
		{"/src/noext", TypeFile, false},
	}
	var o Obtainer
	for _, c := range cases {
		t.Run(c.uri, func(t *testing.T) {
			items := o.Obtain(buildPost("", model.File{FileURI: c.uri, ThumbnailURI: "/thumb/x.jpg"}))
			if len(items) != 1 {
				t.Fatalf("項目数が不正です: %d", len(items))
			}
			if items[0].Type() != c.want {
				t.Errorf("Type が不正です。期待値: %v, 実際値: %v", c.want, items[0].Type())
			}
			if (items[0].ThumbnailURI() != "") != c.wantThumb {
				t.Errorf("サムネイルの有無が不正です: %q", items[0].ThumbnailURI())
			}
		})
	}
}

func TestObtain_EmbedFromComment(t *testing.T) {
	// Arrange
	video := fakeMatcher{kind: "video", pattern: regexp.MustCompile(`\[video:(\w+)\]`), content: model.ContentTypeVideo}
	audio := fakeMatcher{kind: "audio", pattern: regexp.MustCompile(`\[audio:(\w+)\]`), content: model.ContentTypeAudio}
	o := Obtainer{Matchers: []EmbedMatcher{video, audio}}
	structural := model.Embedded{FileURI: "https://host/x", EmbeddedType: "host", ContentType: model.ContentTypeVideo, CanDownload: true}
	post := buildPost("[audio:a1] [video:v1] [video:broken] [video:v2]",
		model.File{FileURI: "/src/1.png"}, structural)

	// Act
	items := o.Obtain(post)

	// Assert
	wantNames := []string{"1.png", "x", "v1", "v2", "a1"}
	if len(items) != len(wantNames) {
		t.Fatalf("項目数が不正です。期待値: %d, 実際値: %d", len(wantNames), len(items))
	}
	for i, name := range wantNames {
		if items[i].FileName() != name {
			t.Errorf("%d番目の項目が不正です。期待値: %s, 実際値: %s", i, name, items[i].FileName())
		}
	}
	if items[1].GeneralType() != GeneralTypeFile || !items[1].CanDownloadToStorage() {
		t.Errorf("構造的な埋め込みの分類が不正です: %v", items[1].GeneralType())
	}
	linked, ok := items[2].(*EmbeddedItem)
	if !ok {
		t.Fatalf("本文由来の項目は *EmbeddedItem であるべきです: %T", items[2])
	}
	if linked.GeneralType() != GeneralTypeLink || !linked.FromComment() || linked.Type() != TypeVideo {
		t.Errorf("本文由来の埋め込みの分類が不正です: %v %v", linked.GeneralType(), linked.Type())
	}
	if linked.CanDownloadToStorage() {
		t.Error("canDownload=false の埋め込みは保存不可であるべきです")
	}
	if items[4].Type() != TypeAudio || items[4].IsShowInGallery() {
		t.Errorf("音声埋め込みの分類が不正です: %v", items[4].Type())
	}
}

func TestObtain_NilWhenNothing(t *testing.T) {
	o := Obtainer{Matchers: []EmbedMatcher{fakeMatcher{kind: "v", pattern: regexp.MustCompile(`\[v:(\w+)\]`), content: model.ContentTypeVideo}}}
	if items := o.Obtain(buildPost("plain text")); items != nil {
		t.Errorf("項目がない場合は nil を返すべきです: %#v", items)
	}
}

func TestThumbnailKey_MemoizedOnce(t *testing.T) {
	// Arrange
	keys := mapKeys{"/thumb/cached.jpg": "cached-key"}
	o := Obtainer{Keys: keys}
	items := o.Obtain(buildPost("",
		model.File{FileURI: "/src/a.jpg", ThumbnailURI: "/thumb/cached.jpg"},
		model.File{FileURI: "/src/b.jpg", ThumbnailURI: "/thumb/b.jpg"},
	))

	// Act
	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = items[1].ThumbnailKey()
		}(i)
	}
	wg.Wait()

	// Assert
	if items[0].ThumbnailKey() != "cached-key" {
		t.Errorf("キャッシュ済みのキーが使われていません: %s", items[0].ThumbnailKey())
	}
	for _, r := range results {
		if r != DigestKey("/thumb/b.jpg") {
			t.Errorf("キーが一致しません: %s", r)
		}
	}
	keys["/thumb/b.jpg"] = "late"
	if items[1].ThumbnailKey() != DigestKey("/thumb/b.jpg") {
		t.Error("一度計算したキーは変化してはなりません")
	}
}
