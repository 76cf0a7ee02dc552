// Package media handles message attachments: sniffing what a file is and
// handing the bytes to blob storage, which returns a retrievable URL.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadSize is the largest attachment accepted.
const MaxUploadSize = 25 << 20

// ErrUnsupportedType is returned for content that is not image, video or audio.
var ErrUnsupportedType = errors.New("unsupported attachment type")

// ErrTooLarge is returned for attachments above MaxUploadSize.
var ErrTooLarge = errors.New("attachment too large")

// Detect sniffs the attachment kind from the leading bytes of a file.
func Detect(head []byte) (data.FileType, string, error) {
	mt := mimetype.Detect(head)
	mime := mt.String()
	switch {
	case strings.HasPrefix(mime, "image/"):
		return data.FileImage, mime, nil
	case strings.HasPrefix(mime, "video/"):
		return data.FileVideo, mime, nil
	case strings.HasPrefix(mime, "audio/"):
		return data.FileAudio, mime, nil
	}
	return "", mime, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
}

// Uploader stores attachment bytes and returns their URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, folder, name string, kind data.FileType) (string, error)
}

// Attachment is a stored upload.
type Attachment struct {
	URL      string        `json:"url"`
	FileType data.FileType `json:"fileType"`
	MIME     string        `json:"mime"`
}

// Store sniffs r, rejects unsupported or oversized content and uploads it
// under conversations/<conversationID>.
func Store(ctx context.Context, up Uploader, conversationID, name string, r io.Reader) (*Attachment, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	kind, mime, err := Detect(body)
	if err != nil {
		return nil, err
	}

	url, err := up.Upload(ctx, bytes.NewReader(body), "chat/conversations/"+conversationID, name, kind)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	return &Attachment{URL: url, FileType: kind, MIME: mime}, nil
}

// CloudinaryUploader uploads to Cloudinary.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader configures an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld}, nil
}

// Upload implements Uploader.
func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, folder, name string, kind data.FileType) (string, error) {
	resource := "image"
	if kind != data.FileImage {
		// Cloudinary files audio under the video resource type
		resource = "video"
	}
	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     name + "_" + time.Now().UTC().Format("20060102150405"),
		ResourceType: resource,
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.SecureURL, nil
}
