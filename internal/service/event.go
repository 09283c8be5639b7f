package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"video-processing-service/internal/entity"
)

// PushBody is the push-subscription request body: {"message":{"data":"<base64>"}}.
type PushBody struct {
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

// Event is the decoded storage notification. Name is the uploaded object name.
type Event struct {
	Name string `json:"name"`
}

// DecodePushBody parses a push body and the event carried in message.data.
func DecodePushBody(body []byte) (Event, error) {
	var pb PushBody
	if err := json.Unmarshal(body, &pb); err != nil {
		return Event{}, &ValidationError{Reason: "malformed body"}
	}
	return DecodeEventData(pb.Message.Data)
}

// DecodeEventData decodes base64 text holding UTF-8 JSON {"name": "..."}.
func DecodeEventData(data string) (Event, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Event{}, &ValidationError{Reason: "missing message data"}
	}

	raw, err := decodeBase64(data)
	if err != nil {
		return Event{}, &ValidationError{Reason: "message data is not base64"}
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, &ValidationError{Reason: "message data is not json"}
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// some publishers send unpadded or url-safe base64
func decodeBase64(s string) ([]byte, error) {
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}

// EncodeEventData is the inverse of DecodeEventData.
func EncodeEventData(ev Event) string {
	b, _ := json.Marshal(ev)
	return base64.StdEncoding.EncodeToString(b)
}

func (ev Event) Validate() error {
	if strings.TrimSpace(ev.Name) == "" {
		return &ValidationError{Reason: "missing name"}
	}
	if strings.ContainsAny(ev.Name, `/\`) {
		return &ValidationError{Reason: "name must not contain path separators"}
	}
	if entity.JobID(ev.Name) == "" {
		return &ValidationError{Reason: "name has no id part"}
	}
	return nil
}
