// Package images names, saves and reads back uploaded images.
package images // import "github.com/nicolagi/quire/images"

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math/rand"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

// Prefix is the public path under which saved images are served.
const Prefix = "/uploads/images/"

var (
	// ErrInvalidName indicates a name that could not have been produced by
	// Save, such as one containing a path separator.
	ErrInvalidName = errors.New("invalid image name")

	extPattern  = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
	namePattern = regexp.MustCompile(`^[0-9]+-[0-9]+(\.[a-z0-9]{1,10})?$`)
)

// maxAttempts bounds the redraws of a name that is already taken.
const maxAttempts = 5

// Library stores images as values keyed by their generated names.
type Library struct {
	store storage.Store
	now   func() time.Time
}

func New(store storage.Store) *Library {
	return &Library{store: store, now: time.Now}
}

// Name returns a fresh name for an upload whose client-side file name was
// original: "<unix ms>-<random 0..999999><ext>". The extension is kept,
// lowercased, only if it is short and alphanumeric.
func Name(original string, now time.Time) string {
	ms := now.UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("%d-%d%s", ms, rand.Intn(1000000), Ext(original))
}

// Ext returns the extension of the file name original as kept by Name, or the
// empty string.
func Ext(original string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(filepath.ToSlash(original))))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// URL returns the public path of the image with the given name.
func URL(name string) string {
	return Prefix + name
}

// Save reads the image from r and stores it under a fresh name. It returns
// the public path of the saved image.
func (l *Library) Save(original string, r io.Reader) (string, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return "", err
	}
	var name string
	for attempt := 0; ; attempt++ {
		name = Name(original, l.now())
		_, err := l.store.Get(name)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return "", err
		}
		if attempt == maxAttempts {
			return "", fmt.Errorf("could not find a free name for %q", original)
		}
	}
	if err := l.store.Put(name, b); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"name":     name,
		"original": original,
		"size":     len(b),
	}).Info("Saved image")
	return URL(name), nil
}

// Open returns the content of the image with the given name. It returns
// storage.ErrNotFound if there is no such image.
func (l *Library) Open(name string) ([]byte, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return l.store.Get(name)
}
