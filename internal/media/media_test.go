package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}

func TestDetect(t *testing.T) {
	kind, mime, err := Detect(pngHeader)
	if err != nil || kind != data.FileImage || mime != "image/png" {
		t.Fatalf("expected png image, got %s %s %v", kind, mime, err)
	}

	id3 := append([]byte("ID3"), 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
	if kind, _, err := Detect(id3); err != nil || kind != data.FileAudio {
		t.Fatalf("expected audio for ID3 header, got %s %v", kind, err)
	}

	if _, _, err := Detect([]byte("just some text")); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for text, got %v", err)
	}
}

type fakeUploader struct {
	folder, name string
	kind         data.FileType
	size         int
	err          error
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, folder, name string, kind data.FileType) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.folder, f.name, f.kind, f.size = folder, name, kind, len(b)
	return "https://cdn.example.com/" + folder + "/" + name, nil
}

func TestStore(t *testing.T) {
	up := &fakeUploader{}
	att, err := Store(context.Background(), up, "c1", "pic", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if att.FileType != data.FileImage || att.URL != "https://cdn.example.com/chat/conversations/c1/pic" {
		t.Fatalf("unexpected attachment %+v", att)
	}
	if up.size != len(pngHeader) || up.kind != data.FileImage {
		t.Fatalf("uploader got wrong content")
	}

	if _, err := Store(context.Background(), up, "c1", "x", bytes.NewReader([]byte("plain"))); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}

	big := io.MultiReader(bytes.NewReader(pngHeader), bytes.NewReader(make([]byte, MaxUploadSize)))
	if _, err := Store(context.Background(), up, "c1", "big", big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	failing := &fakeUploader{err: errors.New("cloud down")}
	if _, err := Store(context.Background(), failing, "c1", "pic", bytes.NewReader(pngHeader)); err == nil {
		t.Fatalf("expected upload error")
	}
}
