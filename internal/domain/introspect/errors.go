package introspect

import "errors"

// ErrUnknownFormat is returned for knowledge bank formats other than json
// and yaml.
var ErrUnknownFormat = errors.New("unknown knowledge bank format")

// ErrFieldNotFound is returned by KnowledgeBank.Field.
var ErrFieldNotFound = errors.New("field not found")
