package postdb_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nicolagi/quire/post"
	"github.com/nicolagi/quire/postdb"
	"github.com/nicolagi/quire/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts the calls reaching the wrapped store and can be told
// to fail them.
type countingStore struct {
	storage.Store
	mu      sync.Mutex
	gets    int
	puts    int
	getErr  error
	putErr  error
	moveErr error
}

func (s *countingStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Get(key)
}

func (s *countingStore) Put(key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Put(key, value)
}

func (s *countingStore) Move(from, to string) error {
	if s.moveErr != nil {
		return s.moveErr
	}
	return s.Store.(storage.Mover).Move(from, to)
}

func randomCreate() post.CreateRequest {
	owner := gofakeit.Email()
	return post.CreateRequest{
		Title:   gofakeit.Sentence(4),
		Content: gofakeit.Paragraph(1, 3, 12, " "),
		Owner:   &owner,
	}
}

func strp(s string) *string { return &s }

const template = `[
  {"id": "1700000000000001", "title": "Welcome", "content": "First post", "imageUrl": null, "owner": null, "createdAt": "2023-11-14T22:13:20.000Z"},
  {"id": 1700000000000002, "title": "Second", "content": "Numeric id", "createdAt": "2023-11-14T22:13:21.000Z"}
]`

func newTemplateRepository(t *testing.T) (*postdb.Repository, *storage.InMemoryStore) {
	t.Helper()
	store := storage.NewInMemoryStore()
	require.Nil(t, store.Put("blogs.template.json", []byte(template)))
	return postdb.New(store, postdb.WithSeed(postdb.TemplateSeed(store, "blogs.template.json"))), store
}

func TestCreate(t *testing.T) {
	t.Run("appends to the existing posts", func(t *testing.T) {
		repo := postdb.New(storage.NewInMemoryStore())
		previous := []post.Post{}
		for i := 0; i < 5; i++ {
			req := randomCreate()
			posts, err := repo.Create(req)
			require.Nil(t, err)
			require.Len(t, posts, len(previous)+1)
			last := posts[len(posts)-1]
			assert.Equal(t, req.Title, last.Title)
			assert.Equal(t, req.Content, last.Content)
			assert.Equal(t, *req.Owner, *last.Owner)
			assert.True(t, post.ValidID(last.ID))
			for _, p := range previous {
				assert.NotEqual(t, p.ID, last.ID)
			}
			assert.Equal(t, previous, posts[:len(previous)])
			previous = posts
		}
	})
	t.Run("validation failure performs no storage access", func(t *testing.T) {
		store := &countingStore{Store: storage.NewInMemoryStore()}
		repo := postdb.New(store)
		_, err := repo.Create(post.CreateRequest{Title: "", Content: "x"})
		var verr *post.ValidationError
		require.True(t, errors.As(err, &verr))
		_, err = repo.Create(post.CreateRequest{Title: "x", Content: ""})
		require.True(t, errors.As(err, &verr))
		assert.Zero(t, store.gets)
		assert.Zero(t, store.puts)
	})
	t.Run("missing document is seeded from the template", func(t *testing.T) {
		repo, store := newTemplateRepository(t)
		posts, err := repo.Create(randomCreate())
		require.Nil(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "Welcome", posts[0].Title)
		assert.Equal(t, "1700000000000002", posts[1].ID)
		stored, err := repo.List()
		require.Nil(t, err)
		assert.Equal(t, posts, stored)
		_, err = store.Get(postdb.DefaultKey)
		assert.Nil(t, err)
	})
	t.Run("missing document and missing template", func(t *testing.T) {
		store := storage.NewInMemoryStore()
		repo := postdb.New(store, postdb.WithSeed(postdb.TemplateSeed(store, "absent.json")))
		posts, err := repo.Create(randomCreate())
		require.Nil(t, err)
		assert.Len(t, posts, 1)
	})
	t.Run("unparsable template is a read failure", func(t *testing.T) {
		store := storage.NewInMemoryStore()
		require.Nil(t, store.Put("t.json", []byte("{")))
		repo := postdb.New(store, postdb.WithSeed(postdb.TemplateSeed(store, "t.json")))
		_, err := repo.Create(randomCreate())
		assert.True(t, errors.Is(err, postdb.ErrStoreRead))
	})
	t.Run("corrupt document is moved aside and reseeded", func(t *testing.T) {
		repo, store := newTemplateRepository(t)
		corrupt := []byte(`[{"id": "1", "title": `)
		require.Nil(t, store.Put(postdb.DefaultKey, corrupt))
		posts, err := repo.Create(randomCreate())
		require.Nil(t, err)
		assert.Len(t, posts, 3)
		var aside []string
		for _, k := range store.Keys() {
			if strings.HasPrefix(k, postdb.DefaultKey+".corrupt.") {
				aside = append(aside, k)
			}
		}
		require.Len(t, aside, 1)
		preserved, err := store.Get(aside[0])
		require.Nil(t, err)
		assert.Equal(t, corrupt, preserved)
	})
	t.Run("failure to move the corrupt document aside is not fatal", func(t *testing.T) {
		inner := storage.NewInMemoryStore()
		require.Nil(t, inner.Put(postdb.DefaultKey, []byte("not json")))
		store := &countingStore{Store: inner, moveErr: errors.New("read-only directory")}
		repo := postdb.New(store)
		posts, err := repo.Create(randomCreate())
		require.Nil(t, err)
		assert.Len(t, posts, 1)
	})
	t.Run("other read errors abort without writing", func(t *testing.T) {
		store := &countingStore{Store: storage.NewInMemoryStore(), getErr: errors.New("permission denied")}
		repo := postdb.New(store)
		_, err := repo.Create(randomCreate())
		assert.True(t, errors.Is(err, postdb.ErrStoreRead))
		assert.Contains(t, err.Error(), "permission denied")
		assert.Zero(t, store.puts)
	})
	t.Run("write failure reports nothing saved", func(t *testing.T) {
		inner := storage.NewInMemoryStore()
		require.Nil(t, inner.Put(postdb.DefaultKey, []byte("[]")))
		store := &countingStore{Store: inner, putErr: errors.New("disk full")}
		repo := postdb.New(store)
		_, err := repo.Create(randomCreate())
		assert.True(t, errors.Is(err, postdb.ErrStoreWrite))
		raw, err := inner.Get(postdb.DefaultKey)
		require.Nil(t, err)
		assert.Equal(t, "[]", string(raw))
	})
	t.Run("blank document counts as no posts", func(t *testing.T) {
		store := storage.NewInMemoryStore()
		require.Nil(t, store.Put(postdb.DefaultKey, []byte("  \n")))
		posts, err := postdb.New(store).Create(randomCreate())
		require.Nil(t, err)
		assert.Len(t, posts, 1)
		assert.Len(t, store.Keys(), 1)
	})
	t.Run("concurrent creates are all kept", func(t *testing.T) {
		repo := postdb.New(storage.NewInMemoryStore())
		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(randomCreate())
				assert.Nil(t, err)
			}()
		}
		wg.Wait()
		posts, err := repo.List()
		require.Nil(t, err)
		assert.Len(t, posts, n)
	})
}

func TestEdit(t *testing.T) {
	t.Run("only supplied fields change", func(t *testing.T) {
		repo := postdb.New(storage.NewInMemoryStore())
		req := randomCreate()
		req.ImageURL = strp("/uploads/images/1-2.png")
		posts, err := repo.Create(req)
		require.Nil(t, err)
		before := posts[0]

		after, err := repo.Edit(before.ID, post.EditRequest{Content: strp("rewritten")})
		require.Nil(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
		assert.Equal(t, before.Title, after.Title)
		assert.Equal(t, "rewritten", after.Content)
		assert.Equal(t, before.ImageURL, after.ImageURL)
		assert.Equal(t, before.Owner, after.Owner)

		viewed, err := repo.View(before.ID)
		require.Nil(t, err)
		assert.Equal(t, after, viewed)
	})
	t.Run("numeric ids from the template are found", func(t *testing.T) {
		repo, _ := newTemplateRepository(t)
		after, err := repo.Edit("1700000000000002", post.EditRequest{Title: strp("Renamed")})
		require.Nil(t, err)
		assert.Equal(t, "Renamed", after.Title)
		assert.Equal(t, "Numeric id", after.Content)
	})
	t.Run("leading zeros are ignored", func(t *testing.T) {
		repo, _ := newTemplateRepository(t)
		after, err := repo.Edit("01700000000000001", post.EditRequest{Title: strp("Zeros")})
		require.Nil(t, err)
		assert.Equal(t, "1700000000000001", after.ID)
	})
	t.Run("unknown id leaves the document unchanged", func(t *testing.T) {
		store := storage.NewInMemoryStore()
		repo := postdb.New(store)
		_, err := repo.Create(randomCreate())
		require.Nil(t, err)
		before, err := store.Get(postdb.DefaultKey)
		require.Nil(t, err)
		_, err = repo.Edit("42", post.EditRequest{Title: strp("x")})
		assert.True(t, errors.Is(err, postdb.ErrPostNotFound))
		after, err := store.Get(postdb.DefaultKey)
		require.Nil(t, err)
		assert.Equal(t, before, after)
	})
	t.Run("no fields performs no storage access", func(t *testing.T) {
		store := &countingStore{Store: storage.NewInMemoryStore()}
		_, err := postdb.New(store).Edit("1", post.EditRequest{})
		var verr *post.ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Zero(t, store.gets)
	})
}

func TestView(t *testing.T) {
	store := storage.NewInMemoryStore()
	repo := postdb.New(store)
	t.Run("missing document is a read failure", func(t *testing.T) {
		_, err := repo.View("123")
		assert.True(t, errors.Is(err, postdb.ErrStoreRead))
		_, err = store.Get(postdb.DefaultKey)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "view must not seed")
	})
	t.Run("invalid ids", func(t *testing.T) {
		for _, id := range []string{"", "abc", "12x", "-3"} {
			_, err := repo.View(id)
			assert.True(t, errors.Is(err, postdb.ErrInvalidID), id)
		}
	})
	t.Run("round trip", func(t *testing.T) {
		req := randomCreate()
		posts, err := repo.Create(req)
		require.Nil(t, err)
		p, err := repo.View(posts[0].ID)
		require.Nil(t, err)
		assert.Equal(t, posts[0], p)
	})
	t.Run("absent id", func(t *testing.T) {
		_, err := repo.View("999")
		assert.True(t, errors.Is(err, postdb.ErrPostNotFound))
	})
	t.Run("corrupt document is a read failure", func(t *testing.T) {
		require.Nil(t, store.Put(postdb.DefaultKey, []byte("{oops")))
		_, err := repo.View("123")
		assert.True(t, errors.Is(err, postdb.ErrStoreRead))
		_, err = repo.List()
		assert.True(t, errors.Is(err, postdb.ErrStoreRead))
	})
}

func TestLoadOrSeed(t *testing.T) {
	store := storage.NewInMemoryStore()
	seed := func() ([]post.Post, error) {
		return []post.Post{{ID: "1", Title: "seeded", Content: "c"}}, nil
	}
	var handled []byte
	onCorrupt := func(key string, raw []byte) error {
		handled = raw
		return nil
	}

	posts, recovery, err := postdb.LoadOrSeed(store, "doc", seed, onCorrupt)
	require.Nil(t, err)
	assert.Equal(t, postdb.SeededMissing, recovery)
	assert.Len(t, posts, 1)

	posts, recovery, err = postdb.LoadOrSeed(store, "doc", seed, onCorrupt)
	require.Nil(t, err)
	assert.Equal(t, postdb.Loaded, recovery)
	assert.Equal(t, "seeded", posts[0].Title)

	require.Nil(t, store.Put("doc", []byte(`{"not":"an array"}`)))
	_, recovery, err = postdb.LoadOrSeed(store, "doc", seed, onCorrupt)
	require.Nil(t, err)
	assert.Equal(t, postdb.SeededCorrupt, recovery)
	assert.Equal(t, `{"not":"an array"}`, string(handled))
}

func TestViewMatchesIDsExactly(t *testing.T) {
	repo, _ := newTemplateRepository(t)
	_, err := repo.Create(randomCreate())
	require.Nil(t, err)
	p, err := repo.View("1700000000000001")
	require.Nil(t, err)
	assert.Equal(t, "Welcome", p.Title)
	_, err = repo.View("01700000000000001")
	assert.True(t, errors.Is(err, postdb.ErrPostNotFound))
}

func TestRenameAsideWithoutMover(t *testing.T) {
	inner := storage.NewInMemoryStore()
	// Embedding only the Store interface hides Move.
	store := struct{ storage.Store }{inner}
	now := func() time.Time { return time.Unix(1700000000, 0) }
	require.Nil(t, postdb.RenameAside(store, now)("posts.json", []byte("bad")))
	value, err := inner.Get("posts.json.corrupt.1700000000000")
	require.Nil(t, err)
	assert.Equal(t, "bad", string(value))
}

func TestObserver(t *testing.T) {
	var events []postdb.Event
	store := storage.NewInMemoryStore()
	repo := postdb.New(store, postdb.WithObserver(func(e postdb.Event) { events = append(events, e) }))
	posts, err := repo.Create(randomCreate())
	require.Nil(t, err)
	_, err = repo.Edit(posts[0].ID, post.EditRequest{Title: strp("t")})
	require.Nil(t, err)
	require.Nil(t, store.Put(postdb.DefaultKey, []byte("[")))
	_, err = repo.Create(randomCreate())
	require.Nil(t, err)
	assert.Equal(t, []postdb.Event{
		postdb.EventSeededMissing,
		postdb.EventCreated,
		postdb.EventEdited,
		postdb.EventSeededCorrupt,
		postdb.EventCreated,
	}, events)
}
