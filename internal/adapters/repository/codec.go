package repository

import (
	"encoding/json"
	"fmt"

	"github.com/okian/rapport/internal/domain/model"
)

// schemaVersion is written into every encoded snapshot.
const schemaVersion = 1

type envelope struct {
	Version  int             `json:"version"`
	Snapshot json.RawMessage `json:"snapshot"`
}

func encodeSnapshot(s model.Snapshot) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: schemaVersion, Snapshot: body})
}

// decodeSnapshot accepts the versioned envelope and, for blobs written
// before versioning, a bare snapshot object.
func decodeSnapshot(b []byte) (model.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	body := env.Snapshot
	switch env.Version {
	case 0:
		body = b
	case schemaVersion:
	default:
		return model.Snapshot{}, fmt.Errorf("%w: unknown schema version %d", ErrCorrupt, env.Version)
	}

	var s model.Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := s.Check(); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}
