package directory

import (
	"strings"
	"unicode/utf8"
)

// CreateRequest creates a directory under Parent. An empty ID is replaced
// with a new UUID. Owner defaults to the caller.
type CreateRequest struct {
	Owner      string     `json:"owner,omitempty"`
	ID         string     `json:"id,omitempty"`
	Parent     string     `json:"parent"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
}

func (r *CreateRequest) normalize() error {
	if r.ID != "" && !isDirectoryID(r.ID) {
		return invalidf("id %q is not a directory id", r.ID)
	}
	if r.ID == HomeID {
		r.Parent = NoParent
	} else {
		if !isDirectoryID(r.Parent) {
			return invalidf("parent %q is not a directory id", r.Parent)
		}
		if r.Parent == r.ID {
			return invalidf("directory cannot be its own parent")
		}
	}
	name, err := normalizeName(r.Name)
	if err != nil {
		return err
	}
	r.Name = name
	if !r.Visibility.Valid() {
		return invalidf("visibility %q must be PUBLIC or PRIVATE", r.Visibility)
	}
	return nil
}

// UpdateRequest renames a directory or changes its visibility. Nil fields
// are left unchanged; at least one must be set.
type UpdateRequest struct {
	Owner      string      `json:"owner,omitempty"`
	ID         string      `json:"id"`
	Name       *string     `json:"name,omitempty"`
	Visibility *Visibility `json:"visibility,omitempty"`
}

func (r *UpdateRequest) normalize() error {
	if !isDirectoryID(r.ID) {
		return invalidf("id %q is not a directory id", r.ID)
	}
	if r.Name == nil && r.Visibility == nil {
		return invalidf("update must change name or visibility")
	}
	if r.Name != nil {
		name, err := normalizeName(*r.Name)
		if err != nil {
			return err
		}
		r.Name = &name
	}
	if r.Visibility != nil && !r.Visibility.Valid() {
		return invalidf("visibility %q must be PUBLIC or PRIVATE", *r.Visibility)
	}
	return nil
}

// DeleteRequest deletes one directory. Its descendants are removed
// asynchronously by the stream handler.
type DeleteRequest struct {
	Owner string `json:"owner,omitempty"`
	ID    string `json:"id"`
}

// AddItemRequest adds a game to a directory. Type may be left empty to
// derive it from the game.
type AddItemRequest struct {
	Owner       string       `json:"owner,omitempty"`
	DirectoryID string       `json:"id"`
	Game        GameMetadata `json:"game"`
	Type        ItemType     `json:"type,omitempty"`
}

func (r *AddItemRequest) normalize() error {
	if !isDirectoryID(r.DirectoryID) {
		return invalidf("id %q is not a directory id", r.DirectoryID)
	}
	if r.Game.Cohort == "" || r.Game.ID == "" {
		return invalidf("game cohort and id are required")
	}
	if r.Type != "" && !r.Type.IsGame() {
		return invalidf("item type %q is not a game type", r.Type)
	}
	return nil
}

// itemType picks the game variant for a directory owned by owner.
func (r *AddItemRequest) itemType(owner string) ItemType {
	switch {
	case r.Type != "":
		return r.Type
	case r.Game.Cohort == MastersCohort:
		return ItemMasterGame
	case r.Game.Owner == owner:
		return ItemOwnedGame
	default:
		return ItemDojoGame
	}
}

// RemoveItemRequest removes one item from a directory.
type RemoveItemRequest struct {
	Owner       string `json:"owner,omitempty"`
	DirectoryID string `json:"directoryId"`
	ItemID      string `json:"itemId"`
}

func (r *RemoveItemRequest) normalize() error {
	if !isDirectoryID(r.DirectoryID) {
		return invalidf("directoryId %q is not a directory id", r.DirectoryID)
	}
	if r.ItemID == "" {
		return invalidf("itemId is required")
	}
	// Sub-directory entries are keyed by their directory id and leave only
	// by deleting or moving the child.
	if isDirectoryID(r.ItemID) {
		return invalidf("item %s is a directory; delete or move it instead", r.ItemID)
	}
	return nil
}

// MoveRequest moves items from Source to Target within one owner's tree.
type MoveRequest struct {
	Owner  string   `json:"owner,omitempty"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Items  []string `json:"items"`
}

func (r *MoveRequest) normalize(maxItems int) error {
	if !isDirectoryID(r.Source) {
		return invalidf("source %q is not a directory id", r.Source)
	}
	if !isDirectoryID(r.Target) {
		return invalidf("target %q is not a directory id", r.Target)
	}
	if r.Source == r.Target {
		return invalidf("source/target directories must be different")
	}
	if len(r.Items) == 0 {
		return invalidf("at least one item is required")
	}
	if len(r.Items) > maxItems {
		return invalidf("cannot move more than %d items at once", maxItems)
	}
	seen := make(map[string]bool, len(r.Items))
	for _, id := range r.Items {
		switch {
		case id == "":
			return invalidf("item id is required")
		case id == r.Target:
			return invalidf("directory %s cannot be moved into itself", id)
		case seen[id]:
			return invalidf("item %s is listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", invalidf("name must be at most %d characters", MaxNameLength)
	}
	return name, nil
}

// authorize resolves the owner addressed by a request. Only the owner may
// modify a tree.
func authorize(caller, owner string) (string, error) {
	if caller == "" {
		return "", ErrForbidden
	}
	if owner == "" {
		return caller, nil
	}
	if owner != caller {
		return "", ErrForbidden
	}
	return owner, nil
}
