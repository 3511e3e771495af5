// Package picker implements a managed, line-oriented chooser for the
// direct-filesystem provider. It is used where no portal or native dialog
// layer is available, for example over a terminal.
package picker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storagekit/internal/archive"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

// Options tunes listing behaviour.
type Options struct {
	ShowHidden     bool
	BrowseArchives bool
	// StartDir is used when a request has no suggested start location.
	StartDir string
}

// Picker reads commands from in and writes listings to out.
//
// Commands:
//
//	N, N,M   select entries (a single folder is entered instead)
//	+N       browse archive N as a folder
//	..       go to the parent folder
//	.        pick the current folder (folder mode)
//	name     save under this name in the current folder (save mode)
//	<empty>  accept the suggested name (save mode), cancel otherwise
//	:q, EOF  cancel
type Picker struct {
	in     *bufio.Scanner
	out    io.Writer
	opts   Options
	logger *zap.Logger
}

var _ localfs.Chooser = (*Picker)(nil)

// New creates a picker. A nil logger disables logging.
func New(in io.Reader, out io.Writer, opts Options, logger *zap.Logger) *Picker {
	return &Picker{
		in:     bufio.NewScanner(in),
		out:    out,
		opts:   opts,
		logger: logging.OrNop(logger),
	}
}

type entry struct {
	item    storage.Item
	folder  bool
	archive bool
}

var errSelection = errors.New("invalid selection")

// Choose runs one pick. Cancellation returns no items and no error.
func (p *Picker) Choose(ctx context.Context, req localfs.Request) ([]storage.Item, error) {
	cur, err := p.startFolder(req)
	if err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := p.list(ctx, cur, req)
		if err != nil {
			return nil, err
		}
		p.render(req, cur, entries)

		line, ok := p.readLine()
		if !ok {
			p.logger.Debug("picker input closed")
			return nil, nil
		}
		cmd := strings.TrimSpace(line)

		switch {
		case cmd == ":q":
			return nil, nil

		case cmd == "":
			if req.Mode == localfs.ModeSave && req.SuggestedName != "" {
				if f, done := p.saveTarget(cur, req.SuggestedName, req.OverwritePrompt); done {
					return f, nil
				}
				continue
			}
			return nil, nil

		case cmd == "..":
			parent, err := cur.Parent(ctx)
			if err != nil || parent == nil {
				p.printf("already at the top\n")
				continue
			}
			cur = parent

		case cmd == ".":
			if req.Mode == localfs.ModeFolder {
				return []storage.Item{cur}, nil
			}
			p.printf("'.' only picks folders\n")

		case strings.HasPrefix(cmd, "+"):
			next, err := p.enterArchive(ctx, cmd[1:], entries)
			if err != nil {
				p.printf("%v\n", err)
				continue
			}
			cur = next

		default:
			idx, err := parseSelection(cmd, len(entries))
			if err != nil {
				if req.Mode == localfs.ModeSave && !isNumeric(cmd) {
					if f, done := p.saveTarget(cur, cmd, req.OverwritePrompt); done {
						return f, nil
					}
					continue
				}
				p.printf("%v\n", err)
				continue
			}
			if len(idx) == 1 && entries[idx[0]].folder {
				cur = entries[idx[0]].item.(storage.Folder)
				continue
			}
			picked, done := p.pick(req, cur, entries, idx)
			if done {
				p.logger.Debug("picker selection", zap.Int("count", len(picked)))
				return picked, nil
			}
		}
	}
}

func (p *Picker) pick(req localfs.Request, cur storage.Folder, entries []entry, idx []int) ([]storage.Item, bool) {
	var files []storage.Item
	for _, i := range idx {
		if !entries[i].folder {
			files = append(files, entries[i].item)
		}
	}
	switch {
	case req.Mode == localfs.ModeFolder:
		p.printf("enter a folder and use '.' to pick it\n")
		return nil, false
	case len(files) == 0:
		p.printf("no files selected\n")
		return nil, false
	case req.Mode == localfs.ModeSave:
		if len(files) > 1 {
			p.printf("select one file to replace\n")
			return nil, false
		}
		return p.saveTarget(cur, files[0].Name(), req.OverwritePrompt)
	case !req.AllowMultiple && len(files) > 1:
		p.printf("only one file can be selected\n")
		return nil, false
	}
	return files, true
}

// saveTarget resolves name in cur. done is false when the user declined
// to overwrite or the folder cannot hold new files.
func (p *Picker) saveTarget(cur storage.Folder, name string, prompt bool) ([]storage.Item, bool) {
	dir, ok := cur.FullPath()
	if !ok {
		p.printf("cannot save inside %s\n", cur.Name())
		return nil, false
	}
	target := filepath.Join(dir, name)
	if fi, err := os.Stat(target); err == nil {
		if fi.IsDir() {
			p.printf("%s is a folder\n", name)
			return nil, false
		}
		if prompt {
			p.printf("replace %s? [y/N] ", name)
			answer, ok := p.readLine()
			if !ok || !strings.EqualFold(strings.TrimSpace(answer), "y") {
				return nil, false
			}
		}
	}
	f, err := localfs.NewSaveTarget(target)
	if err != nil {
		p.printf("%v\n", err)
		return nil, false
	}
	return []storage.Item{f}, true
}

func (p *Picker) enterArchive(ctx context.Context, arg string, entries []entry) (storage.Folder, error) {
	if !p.opts.BrowseArchives {
		return nil, fmt.Errorf("archive browsing is disabled")
	}
	idx, err := parseSelection(arg, len(entries))
	if err != nil || len(idx) != 1 {
		return nil, errSelection
	}
	e := entries[idx[0]]
	if !e.archive {
		return nil, fmt.Errorf("%s is not an archive", e.item.Name())
	}
	path, _ := e.item.FullPath()
	return archive.Open(ctx, path)
}

func (p *Picker) startFolder(req localfs.Request) (storage.Folder, error) {
	if req.Start != nil {
		return req.Start, nil
	}
	if p.opts.StartDir != "" {
		if d, err := localfs.NewFolder(p.opts.StartDir); err == nil {
			return d, nil
		}
		p.logger.Debug("start directory unavailable", zap.String("dir", p.opts.StartDir))
	}
	wd, err := os.Getwd()
	if err != nil {
		if wd, err = os.UserHomeDir(); err != nil {
			return nil, err
		}
	}
	d, err := localfs.NewFolder(wd)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Picker) list(ctx context.Context, cur storage.Folder, req localfs.Request) ([]entry, error) {
	items, err := cur.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(items))
	for _, it := range items {
		if !p.opts.ShowHidden && strings.HasPrefix(it.Name(), ".") {
			continue
		}
		if _, ok := it.(storage.Folder); ok {
			out = append(out, entry{item: it, folder: true})
			continue
		}
		f, ok := it.(storage.File)
		if !ok || req.Mode == localfs.ModeFolder {
			continue
		}
		isArchive := false
		if p.opts.BrowseArchives {
			if path, ok := f.FullPath(); ok {
				_, isArchive = archive.Identify(ctx, path)
			}
		}
		if !isArchive && !Accepts(ctx, f, req.Filters) {
			continue
		}
		out = append(out, entry{item: it, archive: isArchive})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].folder != out[j].folder {
			return out[i].folder
		}
		return strings.ToLower(out[i].item.Name()) < strings.ToLower(out[j].item.Name())
	})
	return out, nil
}

func (p *Picker) render(req localfs.Request, cur storage.Folder, entries []entry) {
	if req.Title != "" {
		p.printf("== %s ==\n", req.Title)
	}
	p.printf("%s\n", storage.DisplayPath(cur))
	for i, e := range entries {
		switch {
		case e.folder:
			p.printf("%4d) %s/\n", i+1, e.item.Name())
		case e.archive:
			p.printf("%4d) %s  [+%d to browse]\n", i+1, e.item.Name(), i+1)
		default:
			p.printf("%4d) %s\n", i+1, e.item.Name())
		}
	}
	if req.Mode == localfs.ModeSave && req.SuggestedName != "" {
		p.printf("name [%s]> ", req.SuggestedName)
		return
	}
	p.printf("> ")
}

func (p *Picker) readLine() (string, bool) {
	if !p.in.Scan() {
		return "", false
	}
	return p.in.Text(), true
}

func (p *Picker) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

// parseSelection parses "N" or "N,M,..." into zero-based indices.
func parseSelection(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errSelection
		}
		if v < 1 || v > n {
			return nil, fmt.Errorf("%w: %d is out of range", errSelection, v)
		}
		if !seen[v-1] {
			seen[v-1] = true
			out = append(out, v-1)
		}
	}
	return out, nil
}

func isNumeric(s string) bool {
	for _, part := range strings.Split(s, ",") {
		if _, err := strconv.Atoi(strings.TrimSpace(part)); err != nil {
			return false
		}
	}
	return true
}
