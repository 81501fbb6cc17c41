// Package importer keeps vault-sourced records in a store in step with the
// markdown files of a vault, and exports records back to markdown.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/checklist"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/vault"
)

// Change kinds reported to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after an import changes the store.
type EventCallback func(kind, path string)

// Vault is the file source an Importer reads.
type Vault interface {
	List(dir string) ([]vault.File, error)
	Read(path string) ([]byte, error)
}

// Result counts the outcome of a Sync.
type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
}

// Importer mirrors vault files into a user's records.
type Importer struct {
	vault  Vault
	store  store.Store
	userID string
	logger *slog.Logger
	onEvt  EventCallback
}

// New creates an importer writing into userID's records.
func New(v Vault, st store.Store, userID string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{vault: v, store: st, userID: userID, logger: logger}
}

// OnEvent registers cb for every store change the importer makes.
func (im *Importer) OnEvent(cb EventCallback) { im.onEvt = cb }

func (im *Importer) emit(kind, p string) {
	if im.onEvt != nil {
		im.onEvt(kind, p)
	}
}

// RecordID derives the stable record id of a vault file.
func RecordID(vaultPath string) string {
	h := sha256.Sum256([]byte(path.Clean(vaultPath)))
	return "vault-" + hex.EncodeToString(h[:8])
}

type known struct {
	id       string
	typ      models.ItemType
	checksum string
}

// Sync imports new and changed files and removes records whose file is gone.
func (im *Importer) Sync(ctx context.Context) (Result, error) {
	var res Result

	files, err := im.vault.List("")
	if err != nil {
		return res, fmt.Errorf("importer: list vault: %w", err)
	}
	existing, err := im.existing(ctx)
	if err != nil {
		return res, err
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		if k, ok := existing[f.Path]; ok && k.checksum == f.Checksum {
			res.Unchanged++
			continue
		}
		data, err := im.vault.Read(f.Path)
		if err != nil {
			im.logger.Warn("importer: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		kind, err := im.importFile(ctx, f.Path, data, existing)
		if err != nil {
			im.logger.Warn("importer: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		switch kind {
		case KindCreated:
			res.Created++
		case KindUpdated:
			res.Updated++
		}
	}

	for p, k := range existing {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := im.store.Delete(ctx, im.userID, k.id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			im.logger.Warn("importer: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		res.Deleted++
		im.emit(KindDeleted, p)
	}

	im.logger.Info("importer: sync complete",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("deleted", res.Deleted))
	return res, nil
}

// ImportFile creates or refreshes the record of one vault file.
// It returns the change kind, or "" when the file was unchanged.
func (im *Importer) ImportFile(ctx context.Context, vaultPath string, data []byte) (string, error) {
	existing := map[string]known{}
	rec, err := im.store.Get(ctx, im.userID, RecordID(vaultPath))
	switch {
	case err == nil:
		existing[vaultPath] = knownOf(*rec)
	case !errors.Is(err, apperr.ErrNotFound):
		return "", fmt.Errorf("importer: lookup %s: %w", vaultPath, err)
	}
	if k, ok := existing[vaultPath]; ok && k.checksum == vault.Checksum(data) {
		return "", nil
	}
	return im.importFile(ctx, vaultPath, data, existing)
}

// Remove deletes the record of a vault file, if any.
func (im *Importer) Remove(ctx context.Context, vaultPath string) error {
	err := im.store.Delete(ctx, im.userID, RecordID(vaultPath))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("importer: remove %s: %w", vaultPath, err)
	}
	im.emit(KindDeleted, vaultPath)
	return nil
}

func (im *Importer) importFile(ctx context.Context, vaultPath string, data []byte, existing map[string]known) (string, error) {
	rec := RecordFromFile(vaultPath, data, time.Now())

	k, found := existing[vaultPath]
	if found && k.typ != rec.Type {
		// The type of a record is immutable; replace it.
		if err := im.store.Delete(ctx, im.userID, k.id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("importer: replace %s: %w", vaultPath, err)
		}
		found = false
	}

	if !found {
		if _, err := im.store.Create(ctx, im.userID, &rec); err != nil {
			return "", fmt.Errorf("importer: create %s: %w", vaultPath, err)
		}
		im.logger.Debug("importer: created", slog.String("path", vaultPath), slog.String("id", rec.ID))
		im.emit(KindCreated, vaultPath)
		return KindCreated, nil
	}

	p := models.Patch{Title: &rec.Title, Body: &rec.Body, Tags: &rec.Tags, Meta: &rec.Meta}
	if rec.Type == models.TypeList {
		p.Items = &rec.Items
	}
	if err := im.store.Update(ctx, im.userID, k.id, p); err != nil {
		return "", fmt.Errorf("importer: update %s: %w", vaultPath, err)
	}
	im.logger.Debug("importer: updated", slog.String("path", vaultPath), slog.String("id", k.id))
	im.emit(KindUpdated, vaultPath)
	return KindUpdated, nil
}

// existing maps the vault path of every vault-sourced record to its identity.
func (im *Importer) existing(ctx context.Context) (map[string]known, error) {
	out := map[string]known{}
	for offset := 0; ; offset += store.MaxLimit {
		page, err := im.store.List(ctx, im.userID, models.Filter{
			Source: models.SourceVault,
			Limit:  store.MaxLimit,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("importer: list records: %w", err)
		}
		for _, rec := range page {
			if p := docs.SourcePath(rec); p != "" {
				out[p] = knownOf(rec)
			}
		}
		if len(page) < store.MaxLimit {
			return out, nil
		}
	}
}

func knownOf(rec models.Record) known {
	cs, _ := rec.Meta[docs.MetaChecksum].(string)
	return known{id: rec.ID, typ: rec.Type, checksum: cs}
}

// RecordFromFile converts a vault file to its record. A front-matter
// "type: list" yields a checklist built from the file's "- [ ]" lines;
// otherwise the directory decides between note, journal and brief, unless
// the front matter names one of those types.
func RecordFromFile(vaultPath string, data []byte, now time.Time) models.Record {
	raw := string(data)
	fm := parser.ParseFrontMatter(raw)

	title := parser.DeriveTitle(fm.Data, fm.Content)
	if title == "" {
		title = strings.TrimSuffix(path.Base(vaultPath), path.Ext(vaultPath))
	}

	rec := models.Record{
		ID:     RecordID(vaultPath),
		Title:  title,
		Source: models.SourceVault,
		Tags:   []string{},
		Meta: map[string]any{
			docs.MetaSourcePath: vaultPath,
			docs.MetaChecksum:   vault.Checksum(data),
		},
	}

	switch typ := models.ItemType(strings.ToLower(parser.StringValue(fm.Data, "type"))); typ {
	case models.TypeList:
		rec.Type = models.TypeList
		rec.Tags = parser.UniqueTags(parser.TagsValue(fm.Data))
		rec.Items = checklist.FromMarkdown(fm.Content, now)
	case models.TypeNote, models.TypeJournal, models.TypeBrief:
		rec.Type = typ
		rec.Body = raw
	default:
		rec.Type = docs.ClassifyPath(vaultPath)
		rec.Body = raw
	}
	return rec
}
