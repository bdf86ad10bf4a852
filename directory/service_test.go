package directory_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/directories/directory"
	"github.com/jacentio/directories/internal/ddbfake"
	"github.com/jacentio/directories/store"
)

const table = "directories"

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

type fixture struct {
	svc    *directory.Service
	client *ddbfake.Client
	now    time.Time
}

func newFixture(t *testing.T, cfg directory.Config) *fixture {
	t.Helper()
	client := ddbfake.New()
	client.CreateTable(table, "owner", "id")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		client: client,
		svc:    directory.NewService(store.New(client, store.DefaultConfig()), cfg, logger),
		now:    fixedTime,
	}
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func (f *fixture) home(t *testing.T, owner string) *directory.Directory {
	t.Helper()
	dir, err := f.svc.CreateDirectory(context.Background(), owner, directory.CreateRequest{
		ID:         directory.HomeID,
		Name:       "Home",
		Visibility: directory.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create home: %v", err)
	}
	return dir
}

func (f *fixture) mkdir(t *testing.T, owner, parent, name string) *directory.Directory {
	t.Helper()
	dir, err := f.svc.CreateDirectory(context.Background(), owner, directory.CreateRequest{
		Parent:     parent,
		Name:       name,
		Visibility: directory.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return dir
}

func (f *fixture) get(t *testing.T, owner, id string) *directory.Directory {
	t.Helper()
	dir, err := f.svc.GetDirectory(context.Background(), owner, owner, id)
	if err != nil {
		t.Fatalf("get %s/%s: %v", owner, id, err)
	}
	return dir
}

func (f *fixture) exists(owner, id string) bool {
	return f.client.Item(table, store.StringKey("owner", owner, "id", id)) != nil
}

func game(cohort, id, owner string) directory.GameMetadata {
	return directory.GameMetadata{
		Cohort:           cohort,
		ID:               id,
		Owner:            owner,
		OwnerDisplayName: strings.ToUpper(owner),
		CreatedAt:        "2024-01-01T00:00:00Z",
		White:            "Carlsen",
		Black:            "Nakamura",
		WhiteElo:         "2830",
		Result:           "1-0",
	}
}

// --- Create ---

func TestCreateDirectory_Home(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	dir := f.home(t, "alice")

	if dir.Parent != directory.NoParent {
		t.Errorf("expected parent %q, got %q", directory.NoParent, dir.Parent)
	}
	if len(dir.Items) != 0 {
		t.Errorf("expected empty items, got %v", dir.ItemIDs())
	}

	got := f.get(t, "alice", directory.HomeID)
	if got.Name != "Home" || got.Owner != "alice" {
		t.Errorf("unexpected stored directory %+v", got)
	}
	if !got.CreatedAt.Equal(fixedTime) || !got.UpdatedAt.Equal(fixedTime) {
		t.Errorf("expected timestamps %v, got %v / %v", fixedTime, got.CreatedAt, got.UpdatedAt)
	}
	if f.client.Calls(ddbfake.OpTransactWriteItems) != 0 {
		t.Error("expected home to be written without a transaction")
	}
}

func TestCreateDirectory_HomeIgnoresParent(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	dir, err := f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		ID:         directory.HomeID,
		Parent:     uuid.NewString(),
		Name:       "Home",
		Visibility: directory.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Parent != directory.NoParent {
		t.Errorf("expected sentinel parent, got %q", dir.Parent)
	}
}

func TestCreateDirectory_LinksParent(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	f.tick()
	child := f.mkdir(t, "alice", directory.HomeID, "  Openings  ")

	if child.Name != "Openings" {
		t.Errorf("expected trimmed name, got %q", child.Name)
	}
	if _, err := uuid.Parse(child.ID); err != nil {
		t.Errorf("expected generated UUID id, got %q", child.ID)
	}

	home := f.get(t, "alice", directory.HomeID)
	item, ok := home.Items[child.ID].(directory.SubdirectoryItem)
	if !ok {
		t.Fatalf("expected subdirectory entry for %s, got %#v", child.ID, home.Items[child.ID])
	}
	if item.Metadata.Name != "Openings" || item.Metadata.Visibility != directory.VisibilityPublic {
		t.Errorf("unexpected entry metadata %+v", item.Metadata)
	}
	if !home.UpdatedAt.Equal(f.now) {
		t.Errorf("expected parent updatedAt %v, got %v", f.now, home.UpdatedAt)
	}
}

func TestCreateDirectory_ExistingIDConflicts(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")

	_, err := f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		ID:         directory.HomeID,
		Name:       "Other",
		Visibility: directory.VisibilityPrivate,
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := f.get(t, "alice", directory.HomeID); got.Name != "Home" {
		t.Errorf("expected home to be untouched, got name %q", got.Name)
	}

	child := f.mkdir(t, "alice", directory.HomeID, "Openings")
	_, err = f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		ID:         child.ID,
		Parent:     directory.HomeID,
		Name:       "Endgames",
		Visibility: directory.VisibilityPublic,
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := f.get(t, "alice", child.ID); got.Name != "Openings" {
		t.Errorf("expected directory to be untouched, got name %q", got.Name)
	}
}

func TestCreateDirectory_MissingParent(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	id := uuid.NewString()

	_, err := f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		ID:         id,
		Parent:     directory.HomeID,
		Name:       "Orphan",
		Visibility: directory.VisibilityPublic,
	})
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.exists("alice", id) {
		t.Error("expected no directory to be written")
	}
}

func TestCreateDirectory_Validation(t *testing.T) {
	self := uuid.NewString()
	tests := []struct {
		name    string
		caller  string
		req     directory.CreateRequest
		wantErr error
	}{
		{"bad id", "alice", directory.CreateRequest{ID: "nope", Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"nil uuid id", "alice", directory.CreateRequest{ID: directory.NoParent, Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"braced id", "alice", directory.CreateRequest{ID: "{" + self + "}", Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"urn id", "alice", directory.CreateRequest{ID: "urn:uuid:" + self, Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"unhyphenated id", "alice", directory.CreateRequest{ID: strings.ReplaceAll(self, "-", ""), Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"upper case id", "alice", directory.CreateRequest{ID: strings.ToUpper(self), Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"upper case parent", "alice", directory.CreateRequest{Parent: strings.ToUpper(self), Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"bad parent", "alice", directory.CreateRequest{Parent: "nope", Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"own parent", "alice", directory.CreateRequest{ID: self, Parent: self, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"blank name", "alice", directory.CreateRequest{Parent: directory.HomeID, Name: "   ", Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"long name", "alice", directory.CreateRequest{Parent: directory.HomeID, Name: strings.Repeat("é", 101), Visibility: directory.VisibilityPublic}, directory.ErrInvalidArgument},
		{"bad visibility", "alice", directory.CreateRequest{Parent: directory.HomeID, Name: "x", Visibility: "SECRET"}, directory.ErrInvalidArgument},
		{"other owner", "alice", directory.CreateRequest{Owner: "bob", Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrForbidden},
		{"no caller", "", directory.CreateRequest{Parent: directory.HomeID, Name: "x", Visibility: directory.VisibilityPublic}, directory.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, directory.DefaultConfig())
			_, err := f.svc.CreateDirectory(context.Background(), tt.caller, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if f.client.TotalCalls() != 0 {
				t.Errorf("expected no store calls, got %d", f.client.TotalCalls())
			}
		})
	}
}

func TestCreateDirectory_MaxLengthName(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	name := strings.Repeat("é", directory.MaxNameLength)
	dir := f.mkdir(t, "alice", directory.HomeID, name)
	if dir.Name != name {
		t.Error("expected name of exactly MaxNameLength runes to be accepted")
	}
}

// --- Get / List ---

func TestGetDirectory_Visibility(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	private, err := f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		Parent:     directory.HomeID,
		Name:       "Secret prep",
		Visibility: directory.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.GetDirectory(context.Background(), "alice", "alice", private.ID); err != nil {
		t.Errorf("owner read: unexpected error %v", err)
	}
	if _, err := f.svc.GetDirectory(context.Background(), "bob", "alice", private.ID); !errors.Is(err, directory.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetDirectory(context.Background(), "bob", "alice", directory.HomeID); err != nil {
		t.Errorf("public read: unexpected error %v", err)
	}
	if _, err := f.svc.GetDirectory(context.Background(), "alice", "alice", uuid.NewString()); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GetDirectory(context.Background(), "alice", "alice", "bad"); !errors.Is(err, directory.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestListDirectories(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	f.mkdir(t, "alice", directory.HomeID, "Openings")
	if _, err := f.svc.CreateDirectory(context.Background(), "alice", directory.CreateRequest{
		Parent:     directory.HomeID,
		Name:       "Private",
		Visibility: directory.VisibilityPrivate,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.home(t, "bob")

	own, err := f.svc.ListDirectories(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(own) != 3 {
		t.Errorf("expected 3 directories for owner, got %d", len(own))
	}

	other, err := f.svc.ListDirectories(context.Background(), "bob", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != 2 {
		t.Errorf("expected 2 public directories, got %d", len(other))
	}
	for _, d := range other {
		if d.Visibility != directory.VisibilityPublic {
			t.Errorf("expected only public directories, got %s", d.Visibility)
		}
	}
}

// --- Update ---

func TestUpdateDirectory_Rename(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	dir := f.mkdir(t, "alice", directory.HomeID, "Openings")
	f.tick()

	name := " Sicilian "
	got, err := f.svc.UpdateDirectory(context.Background(), "alice", directory.UpdateRequest{
		ID:   dir.ID,
		Name: &name,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Sicilian" {
		t.Errorf("expected name 'Sicilian', got %q", got.Name)
	}
	if got.Visibility != directory.VisibilityPublic {
		t.Errorf("expected visibility unchanged, got %s", got.Visibility)
	}
	if !got.UpdatedAt.Equal(f.now) {
		t.Errorf("expected updatedAt %v, got %v", f.now, got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(fixedTime) {
		t.Errorf("expected createdAt unchanged, got %v", got.CreatedAt)
	}
}

func TestUpdateDirectory_Visibility(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")

	vis := directory.VisibilityPrivate
	got, err := f.svc.UpdateDirectory(context.Background(), "alice", directory.UpdateRequest{
		ID:         directory.HomeID,
		Visibility: &vis,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Visibility != directory.VisibilityPrivate || got.Name != "Home" {
		t.Errorf("unexpected directory %+v", got)
	}
}

func TestUpdateDirectory_Errors(t *testing.T) {
	name := "x"
	bad := directory.Visibility("HIDDEN")
	tests := []struct {
		name    string
		caller  string
		req     directory.UpdateRequest
		wantErr error
	}{
		{"missing", "alice", directory.UpdateRequest{ID: uuid.NewString(), Name: &name}, directory.ErrNotFound},
		{"nothing to change", "alice", directory.UpdateRequest{ID: directory.HomeID}, directory.ErrInvalidArgument},
		{"bad visibility", "alice", directory.UpdateRequest{ID: directory.HomeID, Visibility: &bad}, directory.ErrInvalidArgument},
		{"other owner", "bob", directory.UpdateRequest{Owner: "alice", ID: directory.HomeID, Name: &name}, directory.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, directory.DefaultConfig())
			_, err := f.svc.UpdateDirectory(context.Background(), tt.caller, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateDirectory_MissingIsNotCreated(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	id := uuid.NewString()
	name := "x"
	if _, err := f.svc.UpdateDirectory(context.Background(), "alice", directory.UpdateRequest{ID: id, Name: &name}); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.exists("alice", id) {
		t.Error("expected update not to create a directory")
	}
}

// --- Delete ---

func TestDeleteDirectory_HomeNotAllowed(t *testing.T) {
	for _, caller := range []string{"alice", "bob", ""} {
		t.Run("caller="+caller, func(t *testing.T) {
			f := newFixture(t, directory.DefaultConfig())
			_, err := f.svc.DeleteDirectory(context.Background(), caller, directory.DeleteRequest{
				Owner: "alice",
				ID:    directory.HomeID,
			})
			if !errors.Is(err, directory.ErrNotAllowed) {
				t.Errorf("expected ErrNotAllowed, got %v", err)
			}
			if f.client.TotalCalls() != 0 {
				t.Errorf("expected no store calls, got %d", f.client.TotalCalls())
			}
		})
	}
}

func TestDeleteDirectory(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	dir := f.mkdir(t, "alice", directory.HomeID, "Openings")

	old, err := f.svc.DeleteDirectory(context.Background(), "alice", directory.DeleteRequest{ID: dir.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old.ID != dir.ID || old.Name != "Openings" || old.Parent != directory.HomeID {
		t.Errorf("unexpected deleted directory %+v", old)
	}
	if f.exists("alice", dir.ID) {
		t.Error("expected directory to be deleted")
	}

	_, err = f.svc.DeleteDirectory(context.Background(), "alice", directory.DeleteRequest{ID: dir.ID})
	if !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteDirectory_OtherOwner(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	_, err := f.svc.DeleteDirectory(context.Background(), "bob", directory.DeleteRequest{Owner: "alice", ID: uuid.NewString()})
	if !errors.Is(err, directory.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// --- Items ---

func TestAddRemoveItem_Scenario(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")

	dir, err := f.svc.AddItem(context.Background(), "alice", directory.AddItemRequest{
		DirectoryID: directory.HomeID,
		Game:        game("1500-1600", "g1", "alice"),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	ids := dir.ItemIDs()
	if len(ids) != 1 || ids[0] != "1500-1600#g1" {
		t.Fatalf("expected exactly [1500-1600#g1], got %v", ids)
	}
	item, ok := dir.Items["1500-1600#g1"].(directory.GameItem)
	if !ok {
		t.Fatalf("expected GameItem, got %T", dir.Items["1500-1600#g1"])
	}
	if item.Type != directory.ItemOwnedGame {
		t.Errorf("expected OWNED_GAME, got %s", item.Type)
	}
	if item.Metadata.White != "Carlsen" || item.Metadata.WhiteElo != "2830" || item.Metadata.BlackElo != "" {
		t.Errorf("unexpected metadata %+v", item.Metadata)
	}

	if err := f.svc.RemoveItem(context.Background(), "alice", directory.RemoveItemRequest{
		DirectoryID: directory.HomeID,
		ItemID:      "1500-1600#g1",
	}); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if got := f.get(t, "alice", directory.HomeID); len(got.Items) != 0 {
		t.Errorf("expected empty items, got %v", got.ItemIDs())
	}
}

func TestAddRemoveItem_RestoresKeySet(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	f.mkdir(t, "alice", directory.HomeID, "Openings")
	for _, id := range []string{"a", "b"} {
		if _, err := f.svc.AddItem(context.Background(), "alice", directory.AddItemRequest{
			DirectoryID: directory.HomeID,
			Game:        game("1800-1900", id, "alice"),
		}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	before := strings.Join(f.get(t, "alice", directory.HomeID).ItemIDs(), ",")

	g := game("1800-1900", "c.with.dots", "bob")
	if _, err := f.svc.AddItem(context.Background(), "alice", directory.AddItemRequest{
		DirectoryID: directory.HomeID,
		Game:        g,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.svc.RemoveItem(context.Background(), "alice", directory.RemoveItemRequest{
		DirectoryID: directory.HomeID,
		ItemID:      g.ItemID(),
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	after := strings.Join(f.get(t, "alice", directory.HomeID).ItemIDs(), ",")
	if before != after {
		t.Errorf("expected key set %q, got %q", before, after)
	}
}

func TestAddItem_TypeDerivation(t *testing.T) {
	tests := []struct {
		name     string
		game     directory.GameMetadata
		explicit directory.ItemType
		want     directory.ItemType
	}{
		{"own game", game("1500-1600", "g1", "alice"), "", directory.ItemOwnedGame},
		{"other player", game("1500-1600", "g2", "bob"), "", directory.ItemDojoGame},
		{"masters", game(directory.MastersCohort, "g3", "alice"), "", directory.ItemMasterGame},
		{"explicit", game("1500-1600", "g4", "alice"), directory.ItemDojoGame, directory.ItemDojoGame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, directory.DefaultConfig())
			f.home(t, "alice")
			dir, err := f.svc.AddItem(context.Background(), "alice", directory.AddItemRequest{
				DirectoryID: directory.HomeID,
				Game:        tt.game,
				Type:        tt.explicit,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := dir.Items[tt.game.ItemID()].ItemType(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     directory.AddItemRequest
		wantErr error
	}{
		{"missing directory", directory.AddItemRequest{DirectoryID: uuid.NewString(), Game: game("c", "g", "alice")}, directory.ErrNotFound},
		{"no cohort", directory.AddItemRequest{DirectoryID: directory.HomeID, Game: game("", "g", "alice")}, directory.ErrInvalidArgument},
		{"no game id", directory.AddItemRequest{DirectoryID: directory.HomeID, Game: game("c", "", "alice")}, directory.ErrInvalidArgument},
		{"directory type", directory.AddItemRequest{DirectoryID: directory.HomeID, Game: game("c", "g", "alice"), Type: directory.ItemDirectory}, directory.ErrInvalidArgument},
		{"bad directory id", directory.AddItemRequest{DirectoryID: "x", Game: game("c", "g", "alice")}, directory.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, directory.DefaultConfig())
			_, err := f.svc.AddItem(context.Background(), "alice", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if f.client.Len(table) != 0 {
				t.Error("expected nothing to be written")
			}
		})
	}
}

func TestRemoveItem_AbsentItemSucceeds(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	req := directory.RemoveItemRequest{DirectoryID: directory.HomeID, ItemID: "1500-1600#nope"}

	for i := 0; i < 2; i++ {
		if err := f.svc.RemoveItem(context.Background(), "alice", req); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}
}

func TestRemoveItem_SubdirectoryEntryRejected(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	sub := f.mkdir(t, "alice", directory.HomeID, "sub")
	calls := f.client.TotalCalls()

	err := f.svc.RemoveItem(context.Background(), "alice", directory.RemoveItemRequest{
		DirectoryID: directory.HomeID,
		ItemID:      sub.ID,
	})
	if !errors.Is(err, directory.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := f.client.TotalCalls(); got != calls {
		t.Errorf("expected no store calls, got %d", got-calls)
	}

	if _, ok := f.get(t, "alice", directory.HomeID).Items[sub.ID].(directory.SubdirectoryItem); !ok {
		t.Error("expected home to keep its sub-directory entry")
	}
	if got := f.get(t, "alice", sub.ID).Parent; got != directory.HomeID {
		t.Errorf("expected parent %q, got %q", directory.HomeID, got)
	}
}

func TestRemoveItem_DirectoryIDsRejected(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	f.home(t, "alice")
	for _, id := range []string{uuid.NewString(), directory.HomeID} {
		err := f.svc.RemoveItem(context.Background(), "alice", directory.RemoveItemRequest{
			DirectoryID: directory.HomeID,
			ItemID:      id,
		})
		if !errors.Is(err, directory.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for %s, got %v", id, err)
		}
	}
}

func TestRemoveItem_MissingDirectory(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	id := uuid.NewString()
	err := f.svc.RemoveItem(context.Background(), "alice", directory.RemoveItemRequest{DirectoryID: id, ItemID: "x"})
	if !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if f.exists("alice", id) {
		t.Error("expected no directory to be created")
	}
}

func TestMapWriteError_StoreFailure(t *testing.T) {
	f := newFixture(t, directory.DefaultConfig())
	boom := errors.New("throttled")
	f.client.SetHook(func(op string, n int) error { return boom })

	_, err := f.svc.AddItem(context.Background(), "alice", directory.AddItemRequest{
		DirectoryID: directory.HomeID,
		Game:        game("c", "g", "alice"),
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	for _, kind := range []error{directory.ErrConflict, directory.ErrNotFound, directory.ErrInternalDefect} {
		if errors.Is(err, kind) {
			t.Errorf("did not expect %v", kind)
		}
	}
}
