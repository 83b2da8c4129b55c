package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// TempImages owns the directory transformed images are written to and the
// URL prefix they are served under.
type TempImages struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewTempImages(dir, urlPrefix string) *TempImages {
	return &TempImages{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		now:       time.Now,
	}
}

func (t *TempImages) Init() error {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (t *TempImages) Dir() string {
	return t.dir
}

// Save writes data to <sessionID>-<unix nanos>.<ext>. The file is created
// exclusively so two writers can never share a name.
func (t *TempImages) Save(sessionID, ext string, data []byte) (filePath, fileURL string, err error) {
	stamp := t.now().UnixNano()
	for attempt := 0; attempt < 8; attempt++ {
		name := fmt.Sprintf("%s-%d.%s", sessionID, stamp+int64(attempt), ext)
		filePath = filepath.Join(t.dir, name)

		f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(filePath)
			return "", "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(filePath)
			return "", "", fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		return filePath, t.urlPrefix + "/" + name, nil
	}
	return "", "", fmt.Errorf("%w: no free file name for session %s", ErrFileOperation, sessionID)
}

// Resolve maps a previously returned image URL (or bare file name) to a file
// inside the temp directory. Only the last path element is honoured, so a
// reference can never escape the directory.
func (t *TempImages) Resolve(ref string) (string, error) {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == ".." || name == "/" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidPath
	}

	full := filepath.Join(t.dir, name)
	rel, err := filepath.Rel(t.dir, full)
	if err != nil || rel != name {
		return "", ErrInvalidPath
	}

	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrImageNotFound
	}
	return full, nil
}
