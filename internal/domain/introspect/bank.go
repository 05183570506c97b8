package introspect

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Version is the knowledge bank document version.
const Version = "1.0"

// Format is a knowledge bank serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// KnowledgeBank maps dataset names to their reports.
type KnowledgeBank struct {
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
	Version     string             `json:"version" yaml:"version"`
	Description string             `json:"description" yaml:"description"`
	Datasets    map[string]*Report `json:"datasets" yaml:"datasets"`
}

// NewKnowledgeBank returns an empty document.
func NewKnowledgeBank(description string, now time.Time) *KnowledgeBank {
	return &KnowledgeBank{
		CreatedAt:   now.UTC(),
		Version:     Version,
		Description: description,
		Datasets:    make(map[string]*Report),
	}
}

// Add stores r under its dataset name, replacing any previous report.
func (kb *KnowledgeBank) Add(r *Report) {
	kb.Datasets[r.Dataset] = r
}

// Field looks up one descriptor.
func (kb *KnowledgeBank) Field(dataset, field string) (FieldDescriptor, error) {
	r, ok := kb.Datasets[dataset]
	if !ok {
		return FieldDescriptor{}, fmt.Errorf("%w: dataset %q", ErrFieldNotFound, dataset)
	}
	f, ok := r.Field(field)
	if !ok {
		return FieldDescriptor{}, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, dataset, field)
	}
	return f, nil
}

// Generate scans each dataset in turn and collects the reports.
func Generate(ctx context.Context, in *Introspector, description string, datasets ...Dataset) (*KnowledgeBank, error) {
	kb := NewKnowledgeBank(description, time.Now())
	for _, ds := range datasets {
		r, err := in.Scan(ctx, ds)
		if err != nil {
			return nil, err
		}
		kb.Add(r)
	}
	return kb, nil
}

// Encode writes kb in the given format. JSON output is indented with sorted
// keys.
func (kb *KnowledgeBank) Encode(w io.Writer, f Format) error {
	var (
		raw []byte
		err error
	)
	switch f {
	case FormatJSON:
		raw, err = sonic.ConfigStd.MarshalIndent(kb, "", "  ")
	case FormatYAML:
		raw, err = yaml.Marshal(kb)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return fmt.Errorf("encode knowledge bank: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// Decode reads a knowledge bank written by Encode.
func Decode(r io.Reader, f Format) (*KnowledgeBank, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var kb KnowledgeBank
	switch f {
	case FormatJSON:
		err = sonic.ConfigStd.Unmarshal(raw, &kb)
	case FormatYAML:
		err = yaml.Unmarshal(raw, &kb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode knowledge bank: %w", err)
	}
	return &kb, nil
}
