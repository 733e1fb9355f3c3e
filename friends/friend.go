// Package friends holds the Friend record and the service the HTTP layer
// talks to.
package friends

import (
	"encoding/base64"
	"regexp"

	"github.com/stevemurr/friends-server/schema"
)

// CollectionKey is the document key friends are stored under.
const CollectionKey = "friends"

// Friend is the persisted record. AvatarData holds raw image bytes; it is
// base64 text only inside the stored document.
type Friend struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	AvatarData     []byte `json:"avatarData"`
	AvatarMimeType string `json:"avatarMimeType"`
	Phone          int64  `json:"phone"`
}

func (f Friend) GetID() int { return f.ID }

func (f Friend) WithID(id int) Friend {
	f.ID = id
	return f
}

// Schema is the shape every stored friend must have.
var Schema = &schema.Schema{
	Type:     "object",
	Required: []string{"id", "name", "avatarData", "avatarMimeType", "phone"},
	Properties: map[string]*schema.Schema{
		"id":             {Type: "integer", Minimum: schema.Float(1)},
		"name":           {Type: "string"},
		"avatarData":     {Type: "string"},
		"avatarMimeType": {Type: "string"},
		"phone":          {Type: "integer"},
	},
}

// Profile is what a client sees of a friend.
type Profile struct {
	Name   string `json:"name"`
	Phone  int64  `json:"phone"`
	Avatar string `json:"avatar"`
}

// Entry is a Profile together with its id, used in listings.
type Entry struct {
	ID int `json:"id"`
	Profile
}

// NewFriend carries the fields of a friend to add or replace.
type NewFriend struct {
	Name           string
	Phone          int64
	Avatar         []byte
	AvatarMimeType string
}

func (n NewFriend) record() Friend {
	avatar := n.Avatar
	if avatar == nil {
		// nil would be stored as null and fail Schema on the next load.
		avatar = []byte{}
	}
	return Friend{
		Name:           n.Name,
		Phone:          n.Phone,
		AvatarData:     avatar,
		AvatarMimeType: n.AvatarMimeType,
	}
}

func (f Friend) profile() Profile {
	return Profile{
		Name:   f.Name,
		Phone:  f.Phone,
		Avatar: DataURI(f.AvatarMimeType, f.AvatarData),
	}
}

// DataURI renders data as a base64 data URI of the given media type.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var mimeRegexp = regexp.MustCompile(`(\w+)/([-+.\w]+)`)

// IsImageMIME reports whether mimeType looks like type/subtype with type
// "image".
func IsImageMIME(mimeType string) bool {
	m := mimeRegexp.FindStringSubmatch(mimeType)
	return m != nil && m[1] == "image" && m[2] != ""
}
