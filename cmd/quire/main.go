package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/gops/agent"
	"github.com/nicolagi/quire/images"
	"github.com/nicolagi/quire/postdb"
	"github.com/nicolagi/quire/storage"
	"github.com/nicolagi/quire/web"
	log "github.com/sirupsen/logrus"
)

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/quire/quire.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	flag.Parse()

	c, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}
	c.applyDefaultsForMissingProperties()
	c.applyEnvironment(os.Getenv)

	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.StandardLogger().WriterLevel(log.WarnLevel))

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	documents, disk, closeDocuments, err := openDocuments(c)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"type": c.Store.Type,
		}).Fatal("Could not open document store")
	}
	defer closeDocuments()

	imageStore, closeImages, err := openImages(c)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"type": c.Images.Type,
		}).Fatal("Could not open image store")
	}
	defer closeImages()

	metrics := web.NewMetrics()
	repo := postdb.New(documents,
		postdb.WithKey(c.PostsKey),
		postdb.WithSeed(postdb.TemplateSeed(documents, c.TemplateKey)),
		postdb.WithObserver(metrics.Observe),
	)
	handler := web.New(web.Config{
		PublicDir:      c.PublicDir,
		MaxUploadBytes: c.MaxUploadBytes,
		RatePerSecond:  c.RateLimit.PerSecond,
		RateBurst:      c.RateLimit.Burst,
		Templates:      documents,
		TemplateKey:    c.TemplateKey,
		Disk:           disk,
		MinFreeBytes:   c.MinFreeBytes,
	}, repo, images.New(imageStore), metrics)

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":   c.Addr,
			"store":  c.Store.Type,
			"images": c.Images.Type,
		}).Info("Listening")
		errc <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithField("err", err).Error("Could not listen and serve")
		}
		return
	case sig := <-quit:
		log.WithField("signal", sig).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithField("err", err).Warn("Could not drain connections")
	}
}

// openDocuments returns the store holding the posts and template documents,
// its disk stats if it is on disk, and a function releasing it.
func openDocuments(c *config) (storage.Store, web.DiskStatter, func(), error) {
	switch c.Store.Type {
	case "file":
		store, err := storage.NewFileStore(c.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Infof("Will store documents in %s", store.Dir())
		return store, store, func() {}, nil
	case "bolt":
		if err := os.MkdirAll(filepath.Dir(c.Store.BoltPath), 0700); err != nil {
			return nil, nil, nil, err
		}
		db, err := bolt.Open(c.Store.BoltPath, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := storage.NewBoltStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		log.Infof("Will store documents in bolt database %s", c.Store.BoltPath)
		return store, nil, func() {
			if err := db.Close(); err != nil {
				log.WithField("err", err).Warn("Could not close bolt database")
			}
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store type %q", c.Store.Type)
	}
}

// openImages returns the store for uploaded images and a function releasing
// it.
func openImages(c *config) (storage.Store, func(), error) {
	disk := func() (storage.Store, error) {
		return storage.NewFileStore(c.Images.Dir)
	}
	remote := func() (storage.Store, error) {
		if c.Images.Bucket == "" {
			return nil, errors.New("no bucket configured")
		}
		return storage.NewS3(c.Images.Profile, c.Images.Region, c.Images.Bucket, c.Images.Prefix), nil
	}
	switch c.Images.Type {
	case "disk":
		store, err := disk()
		return store, func() {}, err
	case "s3":
		store, err := remote()
		return store, func() {}, err
	case "paired":
		fast, err := disk()
		if err != nil {
			return nil, nil, err
		}
		slow, err := remote()
		if err != nil {
			return nil, nil, err
		}
		paired := storage.NewPaired(fast, slow)
		return paired, paired.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown images type %q", c.Images.Type)
	}
}
