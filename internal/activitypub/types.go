package activitypub

import (
	"encoding/json"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// DefaultContext is the JSON-LD context stamped on outgoing activities.
const DefaultContext = "https://www.w3.org/ns/activitystreams"

// Tag annotates an activity with a categorical label.
type Tag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Activity is the wire form of one federation message. Object is kept raw
// because it is polymorphic: a bare object id for reference-style activities,
// or an embedded object document for Create and Accept.
type Activity struct {
	Context      any                `json:"@context,omitempty"`
	Type         enums.ActivityType `json:"type"`
	ID           string             `json:"id,omitempty"`
	Actor        string             `json:"actor,omitempty"`
	Object       json.RawMessage    `json:"object,omitempty"`
	Published    *time.Time         `json:"published,omitempty"`
	To           []string           `json:"to,omitempty"`
	AttributedTo string             `json:"attributedTo,omitempty"`
	Tags         []Tag              `json:"tag,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	Content      string             `json:"content,omitempty"`
}

// Object is the decoded form of an embedded activity object. Raw preserves
// the full document for handlers that forward it to the event domain.
type Object struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Actor        string          `json:"actor"`
	AttributedTo string          `json:"attributedTo"`
	Raw          json.RawMessage `json:"-"`
}

// ObjectID returns the id the activity's object refers to: the string itself
// when the object is a bare reference, or the embedded object's id field.
func (a *Activity) ObjectID() string {
	if a == nil || len(a.Object) == 0 {
		return ""
	}
	var ref string
	if err := json.Unmarshal(a.Object, &ref); err == nil {
		return ref
	}
	obj, ok := a.EmbeddedObject()
	if !ok {
		return ""
	}
	return obj.ID
}

// EmbeddedObject decodes the object field when it carries a full document.
func (a *Activity) EmbeddedObject() (*Object, bool) {
	if a == nil || len(a.Object) == 0 {
		return nil, false
	}
	var obj Object
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return nil, false
	}
	obj.Raw = a.Object
	return &obj, true
}

// ObjectActor returns the actor recorded inside an embedded object. Accept
// activities wrap the original Follow, so this is the follower to notify.
func (a *Activity) ObjectActor() string {
	obj, ok := a.EmbeddedObject()
	if !ok {
		return ""
	}
	if obj.Actor != "" {
		return obj.Actor
	}
	return obj.AttributedTo
}

// RemoteActor returns the actor reference the activity originates from,
// preferring attributedTo when the actor field is absent.
func (a *Activity) RemoteActor() string {
	if a == nil {
		return ""
	}
	if a.Actor != "" {
		return a.Actor
	}
	return a.AttributedTo
}
