package directory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/directories/store"
)

// HomeID is the id of the root directory every owner has.
const HomeID = "home"

// NoParent is the parent of the home directory. It is never dereferenced.
var NoParent = uuid.Nil.String()

// MaxNameLength is the maximum length of a directory name, in runes, after trimming.
const MaxNameLength = 100

// Stored attribute names.
const (
	attrOwner      = "owner"
	attrID         = "id"
	attrParent     = "parent"
	attrName       = "name"
	attrVisibility = "visibility"
	attrItems      = "items"
	attrCreatedAt  = "createdAt"
	attrUpdatedAt  = "updatedAt"
)

// Visibility controls whether other users may read a directory.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Directory is a named folder in an owner's tree. Its items are embedded
// snapshots of its direct children.
type Directory struct {
	Owner      string     `dynamodbav:"owner" json:"owner"`
	ID         string     `dynamodbav:"id" json:"id"`
	Parent     string     `dynamodbav:"parent" json:"parent"`
	Name       string     `dynamodbav:"name" json:"name"`
	Visibility Visibility `dynamodbav:"visibility" json:"visibility"`
	Items      Items      `dynamodbav:"items" json:"items"`
	CreatedAt  time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `dynamodbav:"updatedAt" json:"updatedAt"`
}

// IsHome reports whether d is the owner's root directory.
func (d *Directory) IsHome() bool {
	return d.ID == HomeID
}

// HasParent reports whether d is attached to a parent directory.
func (d *Directory) HasParent() bool {
	return d.Parent != "" && d.Parent != NoParent
}

// AsItem returns the entry d's parent holds for it.
func (d *Directory) AsItem() SubdirectoryItem {
	return SubdirectoryItem{
		ID: d.ID,
		Metadata: SubdirectoryMetadata{
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
			Visibility: d.Visibility,
			Name:       d.Name,
		},
	}
}

// Subdirectories returns the sub-directory entries of d, ordered by id.
func (d *Directory) Subdirectories() []SubdirectoryItem {
	var subs []SubdirectoryItem
	for _, it := range d.Items {
		if sub, ok := it.(SubdirectoryItem); ok {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}

// ItemIDs returns the ids of d's items in sorted order.
func (d *Directory) ItemIDs() []string {
	ids := make([]string, 0, len(d.Items))
	for id := range d.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func directoryKey(owner, id string) store.PK {
	return store.StringKey(attrOwner, owner, attrID, id)
}

// isDirectoryID reports whether id can name a directory: the home id or a
// UUID other than the nil sentinel, in lower-case 8-4-4-4-12 form. Only one
// spelling is accepted so a UUID names at most one directory.
func isDirectoryID(id string) bool {
	if id == HomeID {
		return true
	}
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	return err == nil && u != uuid.Nil && u.String() == id
}
