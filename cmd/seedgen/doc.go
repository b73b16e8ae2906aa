// Command seedgen writes a template document of made-up posts, to be used by
// quire to seed a missing or corrupt posts document.
//
// Usage:
//
//	seedgen [-n 5] [-seed 0] [-o data/blogs.template.json]
package main // import "github.com/nicolagi/quire/cmd/seedgen"
