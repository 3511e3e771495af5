package portal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"storagekit/internal/storage"
)

// Filter rule styles of the FileChooser filters option.
const (
	styleGlob uint32 = 0
	styleMIME uint32 = 1
)

// Response codes of Request.Response.
const (
	responseSuccess   uint32 = 0
	responseCancelled uint32 = 1
	responseOther     uint32 = 2
)

type filterRule struct {
	Style   uint32
	Pattern string
}

// filter marshals as (sa(us)).
type filter struct {
	Name  string
	Rules []filterRule
}

func buildFilters(types []storage.FileType) []filter {
	var out []filter
	for _, t := range types {
		var rules []filterRule
		for _, g := range t.Globs() {
			rules = append(rules, filterRule{Style: styleGlob, Pattern: g})
		}
		for _, m := range t.MimeTypes {
			if m = strings.TrimSpace(m); m != "" {
				rules = append(rules, filterRule{Style: styleMIME, Pattern: m})
			}
		}
		if len(rules) == 0 {
			continue
		}
		name := t.Name
		if name == "" {
			name = rules[0].Pattern
		}
		out = append(out, filter{Name: name, Rules: rules})
	}
	return out
}

// newHandleToken returns a token usable as an object path element.
func newHandleToken() string {
	return "storagekit_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RequestPath predicts the Request object path for sender and token.
func RequestPath(sender, token string) dbus.ObjectPath {
	s := strings.TrimPrefix(sender, ":")
	s = strings.ReplaceAll(s, ".", "_")
	return dbus.ObjectPath(fmt.Sprintf("%s/request/%s/%s", portalPath, s, token))
}

// WindowIdentifier formats an X11 window id for the parent_window argument.
// Zero means no parent window.
func WindowIdentifier(xid uintptr) string {
	if xid == 0 {
		return ""
	}
	return fmt.Sprintf("x11:%X", xid)
}

// folderBytes encodes a path as the NUL-terminated byte string the portal expects.
func folderBytes(path string) []byte {
	b := make([]byte, 0, len(path)+1)
	b = append(b, path...)
	return append(b, 0)
}

func openOptions(token string, o storage.FilePickerOpenOptions) map[string]dbus.Variant {
	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"multiple":     dbus.MakeVariant(o.AllowMultiple),
	}
	if f := buildFilters(o.FileTypeFilter); len(f) > 0 {
		opts["filters"] = dbus.MakeVariant(f)
	}
	if dir := storage.StartPath(o.SuggestedStartLocation); dir != "" {
		opts["current_folder"] = dbus.MakeVariant(folderBytes(dir))
	}
	return opts
}

func saveOptions(token string, o storage.FilePickerSaveOptions) map[string]dbus.Variant {
	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
	}
	if f := buildFilters(o.FileTypeChoices); len(f) > 0 {
		opts["filters"] = dbus.MakeVariant(f)
	}
	if o.SuggestedFileName != "" {
		opts["current_name"] = dbus.MakeVariant(o.SuggestedFileName)
	}
	if dir := storage.StartPath(o.SuggestedStartLocation); dir != "" {
		opts["current_folder"] = dbus.MakeVariant(folderBytes(dir))
	}
	return opts
}

func folderOptions(token string, o storage.FolderPickerOpenOptions) map[string]dbus.Variant {
	opts := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"directory":    dbus.MakeVariant(true),
		"multiple":     dbus.MakeVariant(false),
	}
	if dir := storage.StartPath(o.SuggestedStartLocation); dir != "" {
		opts["current_folder"] = dbus.MakeVariant(folderBytes(dir))
	}
	return opts
}

// uriPaths extracts local paths from results["uris"]. Non-file URIs are
// returned separately so the caller can report them.
func uriPaths(results map[string]dbus.Variant) (paths, skipped []string) {
	v, ok := results["uris"]
	if !ok {
		return nil, nil
	}
	uris, ok := v.Value().([]string)
	if !ok {
		return nil, nil
	}
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "file" || u.Path == "" {
			skipped = append(skipped, raw)
			continue
		}
		paths = append(paths, u.Path)
	}
	return paths, skipped
}
