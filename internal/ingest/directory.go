package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDirectory walks root, skips hidden entries, keeps supported extensions and reads
// each file into a RecipeDocument. Files are visited in path order; a file whose
// SHA-256 matches an earlier one is reported as deduplicated.
func LoadDirectory(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	exts := extSet(opts.Extensions)

	var (
		results []FileResult
		stats   DirStats
		paths   []string
	)
	sizes := map[string]int64{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path), exts) {
			return nil
		}
		stats.Matched++
		if info, err := d.Info(); err == nil {
			sizes[path] = info.Size()
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Strings(paths)
	seen := map[string]string{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, stats, err
		}
		if sizes[path] > maxSize {
			results = append(results, FileResult{Path: path, Err: fmt.Sprintf("file too large: %d bytes", sizes[path])})
			stats.Failed++
			continue
		}
		doc, err := ReadFile(path, opts.Contributor)
		if err != nil {
			logger.Warn("ingest.file.failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			continue
		}
		res := FileResult{Path: path, Document: doc}
		if first, ok := seen[doc.SHA256]; ok {
			res.Deduplicated = true
			res.DuplicateOf = first
			stats.Deduplicated++
		} else {
			seen[doc.SHA256] = path
		}
		results = append(results, res)
		stats.Succeeded++
	}

	logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
