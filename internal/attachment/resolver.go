package attachment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/storage"
)

// Policy bounds what uploads are accepted.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// URLTemplates build public links; "{id}" is replaced with the file id.
type URLTemplates struct {
	View      string
	Download  string
	Thumbnail string
}

type Config struct {
	Policy  Policy
	URLs    URLTemplates
	Workers int
	Timeout time.Duration
}

// Result is the outcome for one submission's uploads.
type Result struct {
	Accepted   []model.AttachmentMeta
	TotalBytes int64
	Errors     []string
}

type Resolver struct {
	store   storage.FileStore
	cfg     Config
	allowed map[string]struct{}
}

func NewResolver(store storage.FileStore, cfg Config) *Resolver {
	allowed := make(map[string]struct{}, len(cfg.Policy.AllowedExtensions))
	for _, ext := range cfg.Policy.AllowedExtensions {
		allowed[strings.TrimPrefix(strings.ToLower(ext), ".")] = struct{}{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Resolver{store: store, cfg: cfg, allowed: allowed}
}

// Resolve processes every reference. A rejected or failing file is recorded in
// Result.Errors and never stops the others. Accepted files keep reference order.
func (r *Resolver) Resolve(ctx context.Context, refs []string) Result {
	if len(refs) == 0 {
		return Result{}
	}

	type outcome struct {
		meta *model.AttachmentMeta
		err  string
	}
	outcomes := make([]outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			meta, err := r.resolveOne(gctx, ref)
			if err != nil {
				outcomes[i] = outcome{err: err.Error()}
				return nil
			}
			outcomes[i] = outcome{meta: meta}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	var res Result
	for _, o := range outcomes {
		if o.meta == nil {
			res.Errors = append(res.Errors, o.err)
			continue
		}
		res.Accepted = append(res.Accepted, *o.meta)
		res.TotalBytes += o.meta.Size
	}

	slog.InfoContext(ctx, "attachments resolved",
		"requested", len(refs),
		"accepted", len(res.Accepted),
		"rejected", len(res.Errors),
		"total_bytes", res.TotalBytes)

	return res
}

func (r *Resolver) resolveOne(ctx context.Context, ref string) (*model.AttachmentMeta, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	info, err := r.store.Stat(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: could not read file: %w", ref, err)
	}

	if err := r.check(info); err != nil {
		return nil, err
	}

	if err := r.store.SetPublic(ctx, info.ID); err != nil {
		return nil, fmt.Errorf("%s: could not share file: %w", info.Name, err)
	}

	meta := &model.AttachmentMeta{
		ID:          info.ID,
		Name:        info.Name,
		Size:        info.Size,
		MimeType:    info.MimeType,
		ViewURL:     expand(r.cfg.URLs.View, info.ID),
		DownloadURL: expand(r.cfg.URLs.Download, info.ID),
	}
	if strings.HasPrefix(info.MimeType, "image/") {
		meta.ThumbnailURL = expand(r.cfg.URLs.Thumbnail, info.ID)
	}
	return meta, nil
}

func (r *Resolver) check(info storage.FileInfo) error {
	if info.Size > r.cfg.Policy.MaxBytes {
		return fmt.Errorf("%s: file too large (%s > %s)", info.Name, FormatSize(info.Size), FormatSize(r.cfg.Policy.MaxBytes))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(info.Name)), ".")
	if _, ok := r.allowed[ext]; !ok {
		if ext == "" {
			return fmt.Errorf("%s: file type not allowed (no extension)", info.Name)
		}
		return fmt.Errorf("%s: file type .%s not allowed", info.Name, ext)
	}
	return nil
}

func expand(template, id string) string {
	if template == "" {
		return ""
	}
	segments := strings.Split(id, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.ReplaceAll(template, "{id}", strings.Join(segments, "/"))
}

// FormatSize renders a byte count the way the notification shows it.
func FormatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}
