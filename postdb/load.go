// Package postdb owns the store document holding all posts. Every mutation is
// a whole-document cycle: load (seeding or recovering as needed), change,
// write back.
package postdb // import "github.com/nicolagi/quire/postdb"

import (
	"errors"
	"fmt"
	"time"

	"github.com/nicolagi/quire/post"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

// Seed produces the posts a missing or corrupt store document starts from.
type Seed func() ([]post.Post, error)

// CorruptionHandler is given the key and content of a store document that
// failed to parse, before the document is replaced by a seed.
type CorruptionHandler func(key string, raw []byte) error

// Recovery tells how LoadOrSeed obtained its posts.
type Recovery int

const (
	// Loaded means the document was read and parsed.
	Loaded Recovery = iota
	// SeededMissing means the document was absent and has been seeded.
	SeededMissing
	// SeededCorrupt means the document did not parse and has been seeded.
	SeededCorrupt
)

// String implements fmt.Stringer.
func (r Recovery) String() string {
	switch r {
	case Loaded:
		return "loaded"
	case SeededMissing:
		return "missing"
	case SeededCorrupt:
		return "corrupt"
	default:
		return "unknown recovery"
	}
}

// LoadOrSeed reads the document at key. An absent document is replaced by the
// seed, persisted right away. A document that does not parse is handed to
// onCorrupt, whose failure is only logged, and then replaced by the seed the
// same way. Any other read error is returned, wrapped in ErrStoreRead.
func LoadOrSeed(store storage.Store, key string, seed Seed, onCorrupt CorruptionHandler) ([]post.Post, Recovery, error) {
	logger := log.WithField("key", key)
	raw, err := store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Info("Store document missing, seeding it")
		posts, err := reseed(store, key, seed)
		return posts, SeededMissing, err
	}
	if err != nil {
		return nil, Loaded, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	posts, perr := post.DecodeList(raw)
	if perr == nil {
		return posts, Loaded, nil
	}
	logger.WithField("err", perr).Warn("Store document is corrupt, reseeding it")
	if onCorrupt != nil {
		if err := onCorrupt(key, raw); err != nil {
			logger.WithField("err", err).Warn("Could not preserve corrupt store document")
		}
	}
	posts, err = reseed(store, key, seed)
	return posts, SeededCorrupt, err
}

func reseed(store storage.Store, key string, seed Seed) ([]post.Post, error) {
	if seed == nil {
		seed = EmptySeed
	}
	posts, err := seed()
	if err != nil {
		return nil, fmt.Errorf("%w: seed: %w", ErrStoreRead, err)
	}
	if posts == nil {
		posts = []post.Post{}
	}
	if err := write(store, key, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func write(store storage.Store, key string, posts []post.Post) error {
	b, err := post.EncodeList(posts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := store.Put(key, b); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// EmptySeed starts from no posts.
func EmptySeed() ([]post.Post, error) {
	return []post.Post{}, nil
}

// TemplateSeed starts from the posts of the template document at key. A
// missing template is the same as EmptySeed; a template that does not parse
// is an error.
func TemplateSeed(store storage.Store, key string) Seed {
	return func() ([]post.Post, error) {
		raw, err := store.Get(key)
		if errors.Is(err, storage.ErrNotFound) {
			log.WithField("key", key).Warn("Template document missing, seeding with no posts")
			return EmptySeed()
		}
		if err != nil {
			return nil, err
		}
		posts, err := post.DecodeList(raw)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", key, err)
		}
		return posts, nil
	}
}

// RenameAside preserves a corrupt document under "<key>.corrupt.<unix ms>",
// moving it if the store supports it and copying it otherwise.
func RenameAside(store storage.Store, now func() time.Time) CorruptionHandler {
	return func(key string, raw []byte) error {
		aside := fmt.Sprintf("%s.corrupt.%d", key, now().UnixNano()/int64(time.Millisecond))
		log.WithFields(log.Fields{
			"key":   key,
			"aside": aside,
		}).Info("Preserving corrupt store document")
		if mover, ok := store.(storage.Mover); ok {
			return mover.Move(key, aside)
		}
		return store.Put(aside, raw)
	}
}
