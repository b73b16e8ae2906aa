// Command quire serves blog posts over HTTP.
//
// Posts are kept in a single JSON document, by default data/posts.json,
// rewritten in full on every create or edit. When the document is missing,
// or does not parse, it is seeded from a template document, by default
// data/blogs.template.json; a corrupt document is first moved aside to
// posts.json.corrupt.<unix ms>. Uploaded images are stored on disk under
// public/uploads/images, in S3, or both.
//
// Configuration is read from a relaxed JSON file, $HOME/lib/quire/quire.config
// unless the -config flag says otherwise. A missing file means defaults.
// Example:
//
//	{
//		addr: ":5050"
//		public_dir: "public"
//		data_dir: "data"
//		store: {type: "bolt", bolt_path: "data/quire.db"}
//		images: {type: "paired", bucket: "my-images", region: "eu-west-1"}
//		rate_limit: {per_second: 5, burst: 10}
//	}
//
// The PORT environment variable, if set, overrides the port of addr.
package main // import "github.com/nicolagi/quire/cmd/quire"
