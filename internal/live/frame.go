package live

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lukasdemani/searcher-app/internal/model"
)

// Reasons a frame is dropped without being forwarded.
const (
	dropParse  = "parse"
	dropType   = "type"
	dropTarget = "target"
	dropShape  = "shape"
)

type wireFrame struct {
	Type   string          `json:"type"`
	URLID  int64           `json:"url_id"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame turns one inbound text frame into a PushEvent. A non-empty
// reason with a nil error means the frame was well-formed but is not a push
// event and should be ignored.
func DecodeFrame(raw []byte) (model.PushEvent, string, error) {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.PushEvent{}, dropParse, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type != model.FrameTypeStatusUpdate {
		return model.PushEvent{}, dropType, nil
	}
	if f.URLID <= 0 {
		return model.PushEvent{}, dropTarget, nil
	}

	if f.Status == model.StatusDeleted {
		return model.PushEvent{Kind: model.EventRemoved, TargetID: f.URLID}, "", nil
	}

	patch, err := decodePatch(f.Data)
	if err != nil {
		return model.PushEvent{}, dropParse, err
	}

	status := model.Status(f.Status)
	if !status.Valid() {
		// e.g. the server's "timeout" notice. Only a usable patch keeps it.
		if patch == nil {
			return model.PushEvent{}, dropShape, nil
		}
		status = ""
	}

	return model.PushEvent{
		Kind:     model.EventStatusUpdate,
		TargetID: f.URLID,
		Status:   status,
		Patch:    patch,
	}, "", nil
}

// decodePatch decodes data when it is a JSON object carrying at least one
// record field.
func decodePatch(data json.RawMessage) (*model.Patch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, nil
	}
	var p model.Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode frame data: %w", err)
	}
	if p.Empty() {
		return nil, nil
	}
	return &p, nil
}
