package postdb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nicolagi/quire/post"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrInvalidID indicates an id that cannot belong to any post.
	ErrInvalidID = errors.New("invalid post id")

	// ErrPostNotFound indicates no post has the requested id.
	ErrPostNotFound = errors.New("post not found")

	// ErrStoreRead indicates the store document could not be loaded.
	ErrStoreRead = errors.New("could not read posts")

	// ErrStoreWrite indicates the store document could not be written; the
	// change that was being made is lost.
	ErrStoreWrite = errors.New("could not save posts")
)

// DefaultKey is the store key of the document holding the posts.
const DefaultKey = "posts.json"

// Event is reported to the observer after each successful cycle.
type Event int

const (
	EventCreated Event = iota
	EventEdited
	EventSeededMissing
	EventSeededCorrupt
)

type Option func(*options)

type options struct {
	key       string
	seed      Seed
	onCorrupt CorruptionHandler
	now       func() time.Time
	observe   func(Event)
}

func WithKey(value string) Option {
	return func(o *options) {
		o.key = value
	}
}

func WithSeed(value Seed) Option {
	return func(o *options) {
		o.seed = value
	}
}

func WithCorruptionHandler(value CorruptionHandler) Option {
	return func(o *options) {
		o.onCorrupt = value
	}
}

func WithClock(value func() time.Time) Option {
	return func(o *options) {
		o.now = value
	}
}

func WithObserver(value func(Event)) Option {
	return func(o *options) {
		o.observe = value
	}
}

// Repository is the only reader and writer of the store document.
//
// Read-modify-write cycles are serialized within a Repository, so a single
// process never loses an update. Other processes writing the same document
// are not coordinated with: the last write wins.
type Repository struct {
	opts  options
	store storage.Store
	mu    sync.Mutex
}

func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{store: store}
	r.opts.key = DefaultKey
	r.opts.seed = EmptySeed
	r.opts.now = time.Now
	for _, o := range opts {
		o(&r.opts)
	}
	if r.opts.onCorrupt == nil {
		r.opts.onCorrupt = RenameAside(store, r.opts.now)
	}
	return r
}

// Key returns the store key of the document.
func (r *Repository) Key() string {
	return r.opts.key
}

// Create appends a new post and returns all posts, the new one last.
func (r *Repository) Create(req post.CreateRequest) ([]post.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	posts, err := r.load()
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(posts))
	for _, p := range posts {
		taken[p.ID] = true
	}
	p := post.New(req, r.opts.now(), func(id string) bool { return taken[id] })
	posts = append(posts, p)
	if err := write(r.store, r.opts.key, posts); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"id":    p.ID,
		"count": len(posts),
	}).Info("Created post")
	r.notify(EventCreated)
	return posts, nil
}

// Edit replaces the supplied fields of the post with the given id and returns
// the updated post.
func (r *Repository) Edit(id string, req post.EditRequest) (post.Post, error) {
	if err := req.Validate(); err != nil {
		return post.Post{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	posts, err := r.load()
	if err != nil {
		return post.Post{}, err
	}
	i := find(posts, id)
	if i < 0 {
		return post.Post{}, fmt.Errorf("%q: %w", id, ErrPostNotFound)
	}
	req.Apply(&posts[i])
	if err := write(r.store, r.opts.key, posts); err != nil {
		return post.Post{}, err
	}
	log.WithField("id", posts[i].ID).Info("Edited post")
	r.notify(EventEdited)
	return posts[i], nil
}

// View returns the post whose id is exactly the given one. It never seeds: a
// missing document is an ErrStoreRead.
func (r *Repository) View(id string) (post.Post, error) {
	if !post.ValidID(id) {
		return post.Post{}, fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	raw, err := r.store.Get(r.opts.key)
	if err != nil {
		return post.Post{}, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	posts, err := post.DecodeList(raw)
	if err != nil {
		return post.Post{}, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return post.Post{}, fmt.Errorf("%q: %w", id, ErrPostNotFound)
}

// List returns all posts in insertion order. A missing document is an empty
// list; a corrupt one is an ErrStoreRead.
func (r *Repository) List() ([]post.Post, error) {
	raw, err := r.store.Get(r.opts.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []post.Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	posts, err := post.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	return posts, nil
}

// Raw returns the store document as stored. It returns storage.ErrNotFound if
// there is none yet.
func (r *Repository) Raw() ([]byte, error) {
	return r.store.Get(r.opts.key)
}

func (r *Repository) load() ([]post.Post, error) {
	posts, recovery, err := LoadOrSeed(r.store, r.opts.key, r.opts.seed, r.opts.onCorrupt)
	if err != nil {
		return nil, err
	}
	switch recovery {
	case SeededMissing:
		r.notify(EventSeededMissing)
	case SeededCorrupt:
		r.notify(EventSeededCorrupt)
	}
	return posts, nil
}

func (r *Repository) notify(e Event) {
	if r.opts.observe != nil {
		r.opts.observe(e)
	}
}

func find(posts []post.Post, id string) int {
	for i, p := range posts {
		if post.SameID(p.ID, id) {
			return i
		}
	}
	return -1
}
