package activitypub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// ErrUnknownType marks a message whose activity type has no registered
// decoder. Callers treat it as a terminal, non-fatal outcome.
var ErrUnknownType = errors.New("unknown activity type")

type decodeFunc func(payload json.RawMessage) (*Activity, error)

// Codec parses and serializes every supported activity variant. The decode
// table is exhaustive over enums.ActivityType; an unmatched type yields
// ErrUnknownType rather than a partially decoded activity.
type Codec struct {
	mtx      sync.RWMutex
	decoders map[enums.ActivityType]decodeFunc
}

// NewCodec builds a codec with decoders for all supported variants.
func NewCodec() *Codec {
	c := &Codec{decoders: make(map[enums.ActivityType]decodeFunc)}
	c.Register(enums.ActivityCreate, decodeWithObject(enums.ActivityCreate))
	c.Register(enums.ActivityUpdate, decodeWithObject(enums.ActivityUpdate))
	c.Register(enums.ActivityDelete, decodeWithObject(enums.ActivityDelete))
	c.Register(enums.ActivityFollow, decodeWithObject(enums.ActivityFollow))
	c.Register(enums.ActivityAccept, decodeAccept)
	c.Register(enums.ActivityAnnounce, decodeWithObject(enums.ActivityAnnounce))
	c.Register(enums.ActivityUndo, decodeWithObject(enums.ActivityUndo))
	c.Register(enums.ActivityFlag, decodeWithObject(enums.ActivityFlag))
	return c
}

// Register stores a decoder for the given activity type.
func (c *Codec) Register(activityType enums.ActivityType, decoder decodeFunc) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.decoders[activityType] = decoder
}

// Decode runs the decoder registered for the activity type. The type is taken
// from the stored message, not from the payload; a payload declaring a
// different type is rejected.
func (c *Codec) Decode(activityType enums.ActivityType, payload json.RawMessage) (*Activity, error) {
	c.mtx.RLock()
	decoder, ok := c.decoders[activityType]
	c.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, activityType)
	}
	return decoder(payload)
}

// Encode serializes the activity to its wire JSON form, stamping the default
// JSON-LD context when none is set.
func (c *Codec) Encode(activity *Activity) ([]byte, error) {
	if activity == nil {
		return nil, errors.New("activity is required")
	}
	if activity.Context == nil {
		activity.Context = DefaultContext
	}
	return json.Marshal(activity)
}

func decodeBase(activityType enums.ActivityType, payload json.RawMessage) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(payload, &activity); err != nil {
		return nil, fmt.Errorf("decoding %s activity: %w", activityType, err)
	}
	if activity.Type == "" {
		activity.Type = activityType
	}
	if activity.Type != activityType {
		return nil, fmt.Errorf("payload declares type %q, message recorded %q", activity.Type, activityType)
	}
	return &activity, nil
}

func decodeWithObject(activityType enums.ActivityType) decodeFunc {
	return func(payload json.RawMessage) (*Activity, error) {
		activity, err := decodeBase(activityType, payload)
		if err != nil {
			return nil, err
		}
		if len(activity.Object) == 0 {
			return nil, fmt.Errorf("%s activity missing object", activityType)
		}
		return activity, nil
	}
}

// decodeAccept requires the embedded original activity so the dispatcher can
// address the follower recorded inside it.
func decodeAccept(payload json.RawMessage) (*Activity, error) {
	activity, err := decodeBase(enums.ActivityAccept, payload)
	if err != nil {
		return nil, err
	}
	if _, ok := activity.EmbeddedObject(); !ok {
		return nil, errors.New("Accept activity missing embedded object")
	}
	return activity, nil
}
