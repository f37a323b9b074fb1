// Package source turns external content into knowledge documents.
//
// Two ingestion paths feed the knowledge store:
//
//	Files: single files or whole directory trees, filtered by extension,
//	size-capped, honoring .gitignore, read through os.Root so a crafted
//	symlink cannot escape the requested tree.
//
//	Web: a single URL fetched over HTTP, with the readable article text
//	extracted from the page. No crawling; one URL is one document.
//
// Document IDs are derived from the canonical location (absolute path or
// URL), so ingesting the same source again replaces its chunks instead of
// duplicating them.
package source
