package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"storagekit/internal/archive"
	"storagekit/internal/bookmark"
	"storagekit/internal/localfs"
	"storagekit/internal/platform"
	"storagekit/internal/scoped"
	"storagekit/internal/smb"
	"storagekit/internal/storage"
)

var errUsage = errors.New("invalid arguments, see -h")

func runCommand(ctx context.Context, env *appEnv, name string, args []string) error {
	switch name {
	case "open":
		return cmdOpen(ctx, env, args)
	case "save":
		return cmdSave(ctx, env, args)
	case "folder":
		return cmdFolder(ctx, env)
	case "ls":
		return cmdList(ctx, env, args)
	case "cat":
		return cmdCat(ctx, env, args)
	case "resolve-file":
		if len(args) != 1 {
			return errUsage
		}
		f, err := env.storage.ResolveFileBookmark(ctx, args[0])
		if err != nil {
			return err
		}
		return env.describe(ctx, f)
	case "resolve-folder":
		if len(args) != 1 {
			return errUsage
		}
		d, err := env.storage.ResolveFolderBookmark(ctx, args[0])
		if err != nil {
			return err
		}
		return env.describe(ctx, d)
	case "bookmark":
		return cmdBookmark(ctx, env, args)
	}
	return fmt.Errorf("unknown command %q", name)
}

func (env *appEnv) describe(ctx context.Context, items ...storage.Item) error {
	for _, it := range items {
		if _, err := fmt.Fprintln(env.out, storage.Describe(ctx, it)); err != nil {
			return err
		}
	}
	return nil
}

// fileTypes turns "txt,png" into one filter per extension.
func fileTypes(list string) []storage.FileType {
	var out []storage.FileType
	for _, ext := range strings.Split(list, ",") {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		out = append(out, storage.FileType{Name: strings.ToUpper(ext) + " files", Patterns: []string{"*." + ext}})
	}
	return out
}

func (env *appEnv) startFolder() storage.Folder {
	p := env.cfg.SuggestedStart()
	if p == "" {
		return nil
	}
	f, err := localfs.NewFolder(p)
	if err != nil {
		return nil
	}
	return f
}

func (env *appEnv) remember(item storage.Item) {
	var p string
	if d, ok := item.(storage.Folder); ok {
		p, _ = d.FullPath()
	} else if parent, err := item.Parent(context.Background()); err == nil && parent != nil {
		p, _ = parent.FullPath()
	}
	if p == "" {
		return
	}
	env.cfg.AddRecentFolder(p)
	if err := env.manager.Save(env.cfg); err != nil {
		env.logger.Warn("saving recent folders failed", zap.Error(err))
	}
}

func cmdOpen(ctx context.Context, env *appEnv, args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	multiple := fs.Bool("multiple", false, "allow several files")
	types := fs.String("type", "", "comma separated extensions")
	title := fs.String("title", "Open", "dialog title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files, err := env.storage.OpenFilePicker(ctx, storage.FilePickerOpenOptions{
		Title:                  *title,
		FileTypeFilter:         fileTypes(*types),
		AllowMultiple:          *multiple,
		SuggestedStartLocation: env.startFolder(),
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		env.logger.Info("open cancelled")
		return nil
	}
	env.remember(files[0])
	for _, f := range files {
		if err := env.describe(ctx, f); err != nil {
			return err
		}
		if token, ok := f.SaveBookmark(ctx); ok {
			fmt.Fprintf(env.out, "  bookmark: %s\n", token)
		}
	}
	return nil
}

func cmdSave(ctx context.Context, env *appEnv, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	name := fs.String("name", "", "suggested file name")
	ext := fs.String("ext", "", "default extension")
	overwrite := fs.Bool("confirm", true, "ask before replacing a file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := env.storage.SaveFilePicker(ctx, storage.FilePickerSaveOptions{
		Title:                  "Save",
		FileTypeChoices:        fileTypes(*ext),
		SuggestedFileName:      *name,
		DefaultExtension:       *ext,
		ShowOverwritePrompt:    *overwrite,
		SuggestedStartLocation: env.startFolder(),
	})
	if err != nil {
		return err
	}
	if f == nil {
		env.logger.Info("save cancelled")
		return nil
	}
	w, err := f.OpenWrite(ctx)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, env.in)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	env.logger.Debug("saved", zap.String("path", storage.DisplayPath(f)), zap.Int64("bytes", n))
	env.remember(f)
	return env.describe(ctx, f)
}

func cmdFolder(ctx context.Context, env *appEnv) error {
	d, err := env.storage.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{
		Title:                  "Pick a folder",
		SuggestedStartLocation: env.startFolder(),
	})
	if err != nil {
		return err
	}
	if d == nil {
		env.logger.Info("folder pick cancelled")
		return nil
	}
	env.remember(d)
	return listFolder(ctx, env, d)
}

func listFolder(ctx context.Context, env *appEnv, d storage.Folder) error {
	if err := env.describe(ctx, d); err != nil {
		return err
	}
	items, err := d.Items(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Fprintf(env.out, "  %s\n", storage.Describe(ctx, it))
	}
	return nil
}

// openTarget turns a CLI argument into an item: an SMB URL, an archive
// (when asArchive is set) or a local path.
func openTarget(ctx context.Context, env *appEnv, arg string, asArchive bool) (storage.Item, error) {
	if smb.IsURL(arg) {
		res, err := env.smb.Open(ctx, arg)
		if err != nil {
			return nil, err
		}
		return scoped.Wrap(res, env.logger), nil
	}
	if fi, err := os.Stat(arg); err == nil && asArchive && !fi.IsDir() {
		if _, ok := archive.Identify(ctx, arg); ok {
			return archive.Open(ctx, arg)
		}
	}
	return localfs.NewItem(arg)
}

func cmdList(ctx context.Context, env *appEnv, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	item, err := openTarget(ctx, env, args[0], true)
	if err != nil {
		return err
	}
	d, ok := item.(storage.Folder)
	if !ok {
		return env.describe(ctx, item)
	}
	return listFolder(ctx, env, d)
}

func cmdCat(ctx context.Context, env *appEnv, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	item, err := openTarget(ctx, env, args[0], false)
	if err != nil {
		return err
	}
	f, ok := item.(storage.File)
	if !ok || !f.CanOpenRead() {
		return fmt.Errorf("%s is not a readable file", item.Name())
	}
	r, err := f.OpenRead(ctx)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(env.out, r)
	return err
}

func cmdBookmark(ctx context.Context, env *appEnv, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return errUsage
		}
		item, err := openTarget(ctx, env, args[2], false)
		if err != nil {
			return err
		}
		token, ok := item.SaveBookmark(ctx)
		if !ok {
			return fmt.Errorf("%s cannot be bookmarked", item.Name())
		}
		kind := bookmark.KindFile
		if _, isFolder := item.(storage.Folder); isFolder {
			kind = bookmark.KindFolder
		}
		e := bookmark.Entry{
			Name:     args[1],
			Provider: platform.Family(item),
			Kind:     kind,
			Token:    token,
			SavedAt:  time.Now(),
		}
		if err := env.marks.Put(e); err != nil {
			return err
		}
		fmt.Fprintf(env.out, "%s -> %s\n", e.Name, token)
		return nil

	case "list":
		entries, err := env.marks.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(env.out, "%-20s %-7s %-6s %s\n", e.Name, e.Provider, e.Kind, e.SavedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "open":
		if len(args) != 2 {
			return errUsage
		}
		e, ok, err := env.marks.Get(args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no bookmark named %q", args[1])
		}
		item, err := env.storage.Resolve(ctx, e)
		if err != nil {
			return err
		}
		if d, isFolder := item.(storage.Folder); isFolder {
			return listFolder(ctx, env, d)
		}
		return env.describe(ctx, item)

	case "rm":
		if len(args) != 2 {
			return errUsage
		}
		return env.marks.Delete(args[1])
	}
	return errUsage
}
