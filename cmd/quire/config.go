package main

import (
	"errors"
	"net"
	"os"
	"path/filepath"

	"github.com/nicolagi/quire/postdb"
	"github.com/nicolagi/quire/web"
	"github.com/rogpeppe/rjson"
)

type config struct {
	Addr           string `json:"addr"`
	Debug          bool   `json:"debug"`
	PublicDir      string `json:"public_dir"`
	DataDir        string `json:"data_dir"`
	PostsKey       string `json:"posts_key"`
	TemplateKey    string `json:"template_key"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	MinFreeBytes   uint64 `json:"min_free_bytes"`

	Store struct {
		Type string `json:"type"`

		// Properties for "bolt" type.
		BoltPath string `json:"bolt_path"`
	} `json:"store"`

	Images struct {
		Type string `json:"type"`

		// Properties for "disk" and "paired" types.
		Dir string `json:"dir"`

		// Properties for "s3" and "paired" types.
		Profile string `json:"profile"`
		Region  string `json:"region"`
		Bucket  string `json:"bucket"`
		Prefix  string `json:"prefix"`
	} `json:"images"`

	RateLimit struct {
		PerSecond float64 `json:"per_second"`
		Burst     int     `json:"burst"`
	} `json:"rate_limit"`
}

// loadConfig decodes the configuration file at pathname. A missing file
// yields an empty configuration.
func loadConfig(pathname string) (*config, error) {
	f, err := os.Open(pathname)
	if errors.Is(err, os.ErrNotExist) {
		return &config{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var c *config
	if err := rjson.NewDecoder(f).Decode(&c); err != nil {
		return nil, err
	}
	if c == nil {
		c = &config{}
	}
	return c, nil
}

func (c *config) applyDefaultsForMissingProperties() {
	if c.Addr == "" {
		c.Addr = ":5050"
	}
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.PostsKey == "" {
		c.PostsKey = postdb.DefaultKey
	}
	if c.TemplateKey == "" {
		c.TemplateKey = "blogs.template.json"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = web.DefaultMaxUploadBytes
	}
	if c.Store.Type == "" {
		c.Store.Type = "file"
	}
	if c.Store.BoltPath == "" {
		c.Store.BoltPath = filepath.Join(c.DataDir, "quire.db")
	}
	if c.Images.Type == "" {
		c.Images.Type = "disk"
	}
	if c.Images.Dir == "" {
		c.Images.Dir = filepath.Join(c.PublicDir, "uploads", "images")
	}
	if c.Images.Prefix == "" {
		c.Images.Prefix = "uploads/images"
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}

// applyEnvironment lets PORT replace the port of the listen address.
func (c *config) applyEnvironment(getenv func(string) string) {
	port := getenv("PORT")
	if port == "" {
		return
	}
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		host = ""
	}
	c.Addr = net.JoinHostPort(host, port)
}
