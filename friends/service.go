package friends

import (
	"fmt"

	"github.com/stevemurr/friends-server/apperr"
	"github.com/stevemurr/friends-server/collection"
	"github.com/stevemurr/friends-server/log"
	"github.com/stevemurr/friends-server/store"
)

// Service translates friend operations into collection calls.
type Service struct {
	friends *collection.Collection[Friend]
}

// NewService opens the friends collection in db.
func NewService(db store.Store) (*Service, error) {
	c, err := collection.New[Friend](db, CollectionKey, collection.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &Service{friends: c}, nil
}

// Get returns the profile of the friend with the given id, or a not-found
// error naming the id.
func (s *Service) Get(id int) (Profile, error) {
	f, ok, err := s.friends.Get(id)
	if err != nil {
		return Profile{}, apperr.NewInternalError("failed to read friends", err)
	}
	if !ok {
		return Profile{}, apperr.NewNotFoundError(fmt.Sprintf("friend with id %d does not exist", id))
	}
	return f.profile(), nil
}

// List returns every friend in insertion order.
func (s *Service) List() ([]Entry, error) {
	all, err := s.friends.All()
	if err != nil {
		return nil, apperr.NewInternalError("failed to read friends", err)
	}
	entries := make([]Entry, 0, len(all))
	for _, f := range all {
		entries = append(entries, Entry{ID: f.ID, Profile: f.profile()})
	}
	return entries, nil
}

// Add stores a new friend and returns it with its assigned id.
func (s *Service) Add(n NewFriend) (Friend, error) {
	if !IsImageMIME(n.AvatarMimeType) {
		return Friend{}, apperr.NewValidationError("Incorrect data", fmt.Errorf("avatar mime type %q is not an image", n.AvatarMimeType))
	}
	f, err := s.friends.Add(n.record())
	if err != nil {
		return Friend{}, apperr.NewInternalError("failed to add friend", err)
	}
	log.Debugf("added friend %d (%d avatar bytes, %s)", f.ID, len(f.AvatarData), f.AvatarMimeType)
	return f, nil
}

// Update replaces every field of the friend with the given id. A missing id
// is a silent no-op reported as false.
func (s *Service) Update(id int, n NewFriend) (bool, error) {
	if !IsImageMIME(n.AvatarMimeType) {
		return false, apperr.NewValidationError("Incorrect data", fmt.Errorf("avatar mime type %q is not an image", n.AvatarMimeType))
	}
	ok, err := s.friends.Update(id, n.record())
	if err != nil {
		return false, apperr.NewInternalError("failed to update friend", err)
	}
	if !ok {
		log.Debugf("update of missing friend %d ignored", id)
	}
	return ok, nil
}

// Delete removes the friend with the given id. Deleting a missing id is a
// silent no-op.
func (s *Service) Delete(id int) error {
	ok, err := s.friends.Delete(id)
	if err != nil {
		return apperr.NewInternalError("failed to delete friend", err)
	}
	if !ok {
		log.Debugf("delete of missing friend %d ignored", id)
	}
	return nil
}
