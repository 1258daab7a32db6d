// Package storage is the blob store behind attachment and avatar uploads.
// Callers only ever keep the returned URL; bytes live on local disk served under /static.
package storage

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"evo_chat_server/internal/config"
	"evo_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind selects the target directory.
type Kind string

const (
	KindAvatar     Kind = "avatars"
	KindAttachment Kind = "files"
)

// ImageMimes accepted for avatars.
var ImageMimes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// BlobStore upload/URL contract.
type BlobStore interface {
	// Save stores the upload and returns its public URL. allowedMimes, when given, restricts
	// the sniffed content type.
	Save(ctx context.Context, kind Kind, file *multipart.FileHeader, allowedMimes ...string) (string, error)
}

// LocalStore writes under StaticAvatarPath / StaticFilePath.
type LocalStore struct {
	dirs     map[Kind]string
	baseURL  string
	maxBytes int64
}

// NewLocalStore creates the directories if needed.
func NewLocalStore(conf config.StaticSrcConfig) (*LocalStore, error) {
	s := &LocalStore{
		dirs: map[Kind]string{
			KindAvatar:     conf.StaticAvatarPath,
			KindAttachment: conf.StaticFilePath,
		},
		baseURL:  strings.TrimRight(conf.PublicBaseURL, "/"),
		maxBytes: conf.MaxUploadBytes,
	}
	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *LocalStore) Save(ctx context.Context, kind Kind, fileHeader *multipart.FileHeader, allowedMimes ...string) (string, error) {
	dir, ok := s.dirs[kind]
	if !ok {
		return "", errorx.Newf(errorx.CodeInvalidParam, "unknown upload kind %s", kind)
	}
	if s.maxBytes > 0 && fileHeader.Size > s.maxBytes {
		return "", errorx.Newf(errorx.CodeInvalidParam, "file exceeds %d bytes", s.maxBytes)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeInvalidParam, "open upload")
	}
	defer src.Close()

	// sniff the real type from the first 512 bytes, not the client's header
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return "", errorx.Wrap(err, errorx.CodeInvalidParam, "read upload")
	}
	contentType := http.DetectContentType(head[:n])
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "rewind upload")
	}
	if len(allowedMimes) > 0 && !allowed(contentType, allowedMimes) {
		return "", errorx.Newf(errorx.CodeInvalidParam, "invalid file type: %s", contentType)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "create blob")
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "write blob")
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", errorx.Wrap(err, errorx.CodeServerBusy, "write blob")
	}

	zap.L().Info("blob stored", zap.String("kind", string(kind)), zap.String("name", name), zap.Int64("size", fileHeader.Size))
	return s.baseURL + "/static/" + string(kind) + "/" + name, nil
}

func allowed(contentType string, mimes []string) bool {
	for _, m := range mimes {
		if strings.HasPrefix(contentType, m) {
			return true
		}
	}
	return false
}
