package main

import (
	"flag"
	"path/filepath"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nicolagi/quire/post"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

func main() {
	count := flag.Int("n", 5, "number of posts")
	seed := flag.Int64("seed", 0, "random seed, 0 for a random one")
	output := flag.String("o", filepath.Join("data", "blogs.template.json"), "output file")
	flag.Parse()

	store, err := storage.NewFileStore(filepath.Dir(*output))
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *output,
		}).Fatal("Could not open output directory")
	}
	b, err := post.EncodeList(generate(gofakeit.New(*seed), *count, time.Now()))
	if err != nil {
		log.WithField("err", err).Fatal("Could not encode posts")
	}
	if err := store.Put(filepath.Base(*output), b); err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *output,
		}).Fatal("Could not write template")
	}
	log.WithFields(log.Fields{
		"count": *count,
		"path":  *output,
	}).Info("Wrote template")
}

// generate returns n posts created over the year before now, oldest first.
func generate(faker *gofakeit.Faker, n int, now time.Time) []post.Post {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = faker.DateRange(now.AddDate(-1, 0, 0), now)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	posts := make([]post.Post, 0, n)
	taken := make(map[string]bool, n)
	for _, at := range times {
		owner := faker.Username()
		req := post.CreateRequest{
			Title:   faker.Sentence(faker.Number(3, 8)),
			Content: faker.Paragraph(faker.Number(1, 3), faker.Number(2, 5), 12, "\n\n"),
			Owner:   &owner,
		}
		p := post.New(req, at, func(id string) bool { return taken[id] })
		taken[p.ID] = true
		posts = append(posts, p)
	}
	return posts
}
