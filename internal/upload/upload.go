// Package upload validates uploaded files and hands them to a Storage backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"learnhub/m/internal/apperror"
)

// MaxFilesPerRequest caps the multi-file route.
const MaxFilesPerRequest = 10

type Policy struct {
	AllowedMIMEs []string
	MaxBytes     int64
}

// StoredFile describes an accepted upload.
type StoredFile struct {
	FieldName    string `json:"fieldname"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	URL          string `json:"url"`
}

type Uploader struct {
	storage Storage
	policy  Policy
	now     func() time.Time
}

func NewUploader(storage Storage, policy Policy) *Uploader {
	return &Uploader{storage: storage, policy: policy, now: time.Now}
}

func (u *Uploader) Policy() Policy { return u.policy }

// maxNameAttempts bounds the numbered retries when a stored name is taken.
const maxNameAttempts = 100

// Check applies the type and size policy without storing anything.
func (u *Uploader) Check(fh *multipart.FileHeader) error {
	mimeType := fh.Header.Get("Content-Type")
	if !slices.Contains(u.policy.AllowedMIMEs, mimeType) {
		return apperror.Validation(fmt.Sprintf("Unsupported file type: %s", mimeType))
	}
	if u.policy.MaxBytes > 0 && fh.Size > u.policy.MaxBytes {
		return apperror.Validation(fmt.Sprintf("File too large: %s exceeds %d bytes", fh.Filename, u.policy.MaxBytes))
	}
	return nil
}

// Accept checks type and size of one multipart file and stores it.
func (u *Uploader) Accept(ctx context.Context, field string, fh *multipart.FileHeader) (StoredFile, error) {
	if err := u.Check(fh); err != nil {
		return StoredFile{}, err
	}
	return u.store(ctx, field, fh)
}

// AcceptAll stores every file or none of them. All files are checked before
// the first one is stored; a later failure removes what was already stored.
func (u *Uploader) AcceptAll(ctx context.Context, field string, fhs []*multipart.FileHeader) ([]StoredFile, error) {
	for _, fh := range fhs {
		if err := u.Check(fh); err != nil {
			return nil, err
		}
	}

	stored := make([]StoredFile, 0, len(fhs))
	for _, fh := range fhs {
		file, err := u.store(ctx, field, fh)
		if err != nil {
			if cerr := u.Discard(context.WithoutCancel(ctx), stored); cerr != nil {
				return nil, errors.Join(err, cerr)
			}
			return nil, err
		}
		stored = append(stored, file)
	}
	return stored, nil
}

// Discard deletes previously stored files.
func (u *Uploader) Discard(ctx context.Context, files []StoredFile) error {
	var errs []error
	for _, f := range files {
		if err := u.storage.Delete(ctx, f.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// store writes the file under its safe name, numbering the name while the
// storage reports it taken.
func (u *Uploader) store(ctx context.Context, field string, fh *multipart.FileHeader) (StoredFile, error) {
	mimeType := fh.Header.Get("Content-Type")
	base := SafeName(fh.Filename, u.now())
	name := base

	for attempt := 1; ; attempt++ {
		loc, err := u.put(ctx, fh, Object{Name: name, ContentType: mimeType, Size: fh.Size})
		if errors.Is(err, ErrObjectExists) && attempt < maxNameAttempts {
			name = numbered(base, attempt)
			continue
		}
		if err != nil {
			return StoredFile{}, err
		}
		return StoredFile{
			FieldName:    field,
			OriginalName: fh.Filename,
			MimeType:     mimeType,
			Size:         fh.Size,
			Filename:     name,
			Path:         loc.Key,
			URL:          loc.URL,
		}, nil
	}
}

func (u *Uploader) put(ctx context.Context, fh *multipart.FileHeader, obj Object) (Location, error) {
	f, err := fh.Open()
	if err != nil {
		return Location{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	obj.Body = f
	return u.storage.Put(ctx, obj)
}

// numbered inserts _n before the extension: 1_a.png becomes 1_a_2.png.
func numbered(name string, n int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}

var whitespace = regexp.MustCompile(`\s+`)

// SafeName builds the stored file name: unix millis, then the lowercased
// original base name with whitespace replaced by underscores.
func SafeName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	safe := strings.ToLower(whitespace.ReplaceAllString(base, "_"))
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), stem, ext)
}
