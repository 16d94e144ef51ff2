package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven/mocks"
)

// reconcileWorld is the per-scenario state of the reconciliation features.
type reconcileWorld struct {
	drive       *mocks.MockDriveClient
	collections *mocks.MockCollectionStore
	stickers    *mocks.MockStickerStore
	kv          *mocks.MockKeyValueStore
	reconciler  *Reconciler

	result     *domain.SyncResult
	err        error
	remembered map[string]string // drive file id -> sticker id
}

func splitNames(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileID derives the test file id from a filename ("a.png" -> "a").
func fileID(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func folderID(name string) string {
	return "folder-" + domain.Slugify(name)
}

func (w *reconcileWorld) emptyRoot() error {
	w.drive = mocks.NewMockDriveClient()
	w.drive.StartToken = "start-1"
	w.collections = mocks.NewMockCollectionStore()
	w.stickers = mocks.NewMockStickerStore()
	w.kv = mocks.NewMockKeyValueStore()
	w.reconciler = NewReconciler(ReconcilerConfig{
		Drive:        w.drive,
		Collections:  w.collections,
		Stickers:     w.stickers,
		KV:           w.kv,
		RootFolderID: testRoot,
		Retry:        RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		BatchPause:   -1,
	})
	return nil
}

func (w *reconcileWorld) rootContains(list string) error {
	for _, name := range splitNames(list) {
		w.drive.AddImage(testRoot, fileID(name), name)
	}
	return nil
}

func (w *reconcileWorld) folderContaining(folder, list string) error {
	w.drive.AddFolder(testRoot, folderID(folder), folder)
	for _, name := range splitNames(list) {
		w.drive.AddImage(folderID(folder), fileID(name), name)
	}
	return nil
}

func (w *reconcileWorld) fullSync(ctx context.Context) error {
	w.result, w.err = w.reconciler.FullSync(ctx)
	return nil
}

func (w *reconcileWorld) incrementalSync(ctx context.Context) error {
	w.result, w.err = w.reconciler.IncrementalSync(ctx)
	return nil
}

func (w *reconcileWorld) noErrors() error {
	if w.err != nil {
		return fmt.Errorf("sync failed: %w", w.err)
	}
	if len(w.result.Errors) > 0 {
		return fmt.Errorf("unexpected item errors: %v", w.result.Errors)
	}
	return nil
}

func (w *reconcileWorld) failsWithoutBaseline() error {
	if !errors.Is(w.err, domain.ErrNoBaseline) {
		return fmt.Errorf("expected ErrNoBaseline, got %v", w.err)
	}
	return nil
}

func (w *reconcileWorld) collectionCount(n int) error {
	all, err := w.collections.List(context.Background())
	if err != nil {
		return err
	}
	if len(all) != n {
		return fmt.Errorf("expected %d collections, got %d", n, len(all))
	}
	return nil
}

func (w *reconcileWorld) collectionNamed(name string) (*domain.Collection, error) {
	all, err := w.collections.List(context.Background())
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no collection named %q", name)
}

func (w *reconcileWorld) collectionSlug(name, slug string) error {
	c, err := w.collectionNamed(name)
	if err != nil {
		return err
	}
	if c.Slug != slug {
		return fmt.Errorf("expected slug %q, got %q", slug, c.Slug)
	}
	return nil
}

func (w *reconcileWorld) collectionFiles(name, list string) error {
	c, err := w.collectionNamed(name)
	if err != nil {
		return err
	}
	stickers, err := w.stickers.ListByCollection(context.Background(), c.ID)
	if err != nil {
		return err
	}

	var got []string
	for _, s := range stickers {
		got = append(got, s.FileID())
	}
	want := splitNames(list)
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("expected files %v, got %v", want, got)
	}
	return nil
}

func (w *reconcileWorld) proxyURLs() error {
	for _, s := range w.stickers.All() {
		if s.SourceURL != "/"+s.FileID() {
			return fmt.Errorf("sticker %s has source URL %q", s.FileID(), s.SourceURL)
		}
	}
	return nil
}

func (w *reconcileWorld) rememberIDs() error {
	w.remembered = map[string]string{}
	for _, s := range w.stickers.All() {
		w.remembered[s.FileID()] = s.ID
	}
	return nil
}

func (w *reconcileWorld) idsUnchanged() error {
	all := w.stickers.All()
	if len(all) != len(w.remembered) {
		return fmt.Errorf("expected %d stickers, got %d", len(w.remembered), len(all))
	}
	for _, s := range all {
		if w.remembered[s.FileID()] != s.ID {
			return fmt.Errorf("sticker for %s changed id", s.FileID())
		}
	}
	return nil
}

func (w *reconcileWorld) imageRemoved(id, folder string) error {
	w.drive.RemoveImage(folderID(folder), id)
	return nil
}

func (w *reconcileWorld) imageAdded(name, folder string) error {
	w.drive.AddImage(folderID(folder), fileID(name), name)
	return nil
}

func (w *reconcileWorld) changeRemoved(id string) error {
	cursor, err := w.kv.Get(context.Background(), domain.CursorKeyChanges)
	if err != nil {
		return fmt.Errorf("no cursor after full sync: %w", err)
	}
	w.drive.Pages[cursor] = &domain.ChangesPage{
		Changes:           []domain.DriveChange{{FileID: id, Removed: true}},
		NewStartPageToken: cursor + "-next",
	}
	return nil
}

func initializeReconcileScenario(sc *godog.ScenarioContext) {
	w := &reconcileWorld{}

	sc.Step(`^an empty Drive root folder$`, w.emptyRoot)
	sc.Step(`^the root folder contains the images "([^"]*)"$`, w.rootContains)
	sc.Step(`^a folder "([^"]*)" containing the images "([^"]*)"$`, w.folderContaining)
	sc.Step(`^a full sync runs$`, w.fullSync)
	sc.Step(`^an incremental sync runs$`, w.incrementalSync)
	sc.Step(`^the sync reports no errors$`, w.noErrors)
	sc.Step(`^the sync fails because no baseline exists$`, w.failsWithoutBaseline)
	sc.Step(`^there (?:is|are) exactly (\d+) collections?$`, w.collectionCount)
	sc.Step(`^the collection "([^"]*)" has slug "([^"]*)"$`, w.collectionSlug)
	sc.Step(`^the collection "([^"]*)" contains exactly the files "([^"]*)"$`, w.collectionFiles)
	sc.Step(`^every sticker references its proxy URL$`, w.proxyURLs)
	sc.Step(`^I remember the sticker ids$`, w.rememberIDs)
	sc.Step(`^the sticker ids are unchanged$`, w.idsUnchanged)
	sc.Step(`^the image "([^"]*)" is removed from folder "([^"]*)"$`, w.imageRemoved)
	sc.Step(`^the image "([^"]*)" is added to folder "([^"]*)"$`, w.imageAdded)
	sc.Step(`^the change feed reports "([^"]*)" as removed$`, w.changeRemoved)
}

func TestReconcileFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "reconcile",
		ScenarioInitializer: initializeReconcileScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("reconciliation features failed")
	}
}
