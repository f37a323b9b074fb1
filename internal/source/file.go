package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/koopa0/sage/internal/knowledge"
)

// Ingestor is the slice of the knowledge store the file and web loaders
// need. Reingest replaces any chunks a previous pass left behind, so
// re-adding a changed file updates the index instead of duplicating it.
type Ingestor interface {
	Reingest(ctx context.Context, documentID string, doc knowledge.Document) ([]knowledge.Chunk, error)
}

// defaultExtensions are the file types indexed when no explicit list is
// configured.
var defaultExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".java": true,
	".c":    true,
	".cpp":  true,
	".h":    true,
	".rs":   true,
	".rb":   true,
	".sh":   true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".json": true,
	".html": true,
	".sql":  true,
}

// MaxFileSize caps individual files. Chunking handles long documents, so
// this guards against binaries and generated blobs, not embedding limits.
const MaxFileSize = 2 << 20 // 2 MiB

// FileResult summarizes a directory ingestion pass.
type FileResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	TotalSize    int64
	Duration     time.Duration
}

// Files ingests local files and directory trees.
type Files struct {
	store      Ingestor
	extensions map[string]bool
	logger     *slog.Logger
}

// NewFiles creates a file loader. extensions overrides the default set when
// non-empty; entries are matched case-insensitively.
func NewFiles(store Ingestor, extensions []string, logger *slog.Logger) (*Files, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	extMap := make(map[string]bool, len(defaultExtensions))
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		for k := range defaultExtensions {
			extMap[k] = true
		}
	}

	return &Files{store: store, extensions: extMap, logger: logger}, nil
}

// AddFile ingests a single file and returns its document ID.
func (f *Files) AddFile(ctx context.Context, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	// Read through os.Root so symlinks cannot escape the parent directory.
	root, err := os.OpenRoot(filepath.Dir(absPath))
	if err != nil {
		return "", fmt.Errorf("open parent directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	name := filepath.Base(absPath)
	info, err := root.Stat(name)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, use AddDirectory", path)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !f.extensions[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file %s is %d bytes, limit is %d", name, info.Size(), MaxFileSize)
	}

	content, err := root.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	docID := fileDocumentID(absPath)
	if _, err := f.store.Reingest(ctx, docID, fileDocument(docID, absPath, info.Size(), content)); err != nil {
		return "", fmt.Errorf("ingest %s: %w", name, err)
	}
	return docID, nil
}

// AddDirectory walks dir and ingests every supported file, honoring the
// tree's .gitignore when one exists at its root. Per-file failures are
// counted, logged and skipped so one unreadable file does not abort the
// pass.
func (f *Files) AddDirectory(ctx context.Context, dir string) (*FileResult, error) {
	start := time.Now()
	result := &FileResult{}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	var gitIgnore *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(absDir, ".gitignore")); err == nil {
		// A malformed .gitignore should not abort the pass.
		gitIgnore, _ = ignore.CompileIgnoreFile(filepath.Join(absDir, ".gitignore"))
	}

	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if gitIgnore != nil && relPath != "." && gitIgnore.MatchesPath(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			result.FilesSkipped++
			return nil
		}
		if !f.extensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if info.Size() > MaxFileSize {
			f.logger.Debug("skipping oversized file", "path", relPath, "size", info.Size())
			result.FilesSkipped++
			return nil
		}

		content, err := root.ReadFile(relPath)
		if err != nil {
			f.logger.Warn("failed to read file", "path", relPath, "error", err)
			result.FilesFailed++
			return nil
		}

		docID := fileDocumentID(path)
		chunks, err := f.store.Reingest(ctx, docID, fileDocument(docID, path, info.Size(), content))
		if err != nil {
			f.logger.Warn("failed to ingest file", "path", relPath, "error", err)
			result.FilesFailed++
			return nil
		}

		result.FilesAdded++
		result.ChunksAdded += len(chunks)
		result.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	f.logger.Info("directory ingested",
		"dir", absDir,
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksAdded,
		"duration", result.Duration,
	)
	return result, nil
}

func fileDocument(docID, absPath string, size int64, content []byte) knowledge.Document {
	name := filepath.Base(absPath)
	return knowledge.Document{
		ID:         docID,
		Content:    string(content),
		SourceType: knowledge.SourceTypeRaw,
		Metadata: map[string]string{
			"title":     name,
			"file_path": absPath,
			"file_ext":  strings.ToLower(filepath.Ext(name)),
			"file_size": fmt.Sprintf("%d", size),
		},
		CreatedAt: time.Now(),
	}
}

// fileDocumentID derives a stable document ID from the absolute path, so
// re-ingesting the same file replaces its previous chunks.
func fileDocumentID(absPath string) string {
	hash := sha256.Sum256([]byte(absPath))
	return "file_" + hex.EncodeToString(hash[:16])
}
