package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/okian/pitchlens/internal/adapters/repository"
	"github.com/okian/pitchlens/internal/domain/introspect"
)

// KnowledgeBank loads the stored knowledge bank of a match, in whichever
// format it was written.
func (p *Pipeline) KnowledgeBank(ctx context.Context, matchID string) (*introspect.KnowledgeBank, error) {
	for _, c := range []struct {
		name   string
		format introspect.Format
	}{
		{repository.KnowledgeBankJSON, introspect.FormatJSON},
		{repository.KnowledgeBankYAML, introspect.FormatYAML},
	} {
		f, err := p.store.Open(ctx, matchID, c.name)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		kb, err := introspect.Decode(f, c.format)
		_ = f.Close()
		return kb, err
	}
	return nil, errors.Wrapf(repository.ErrNotFound, "knowledge bank for match %s", matchID)
}

// Field looks up one field descriptor in the stored knowledge bank.
func (p *Pipeline) Field(ctx context.Context, matchID, dataset, field string) (introspect.FieldDescriptor, error) {
	kb, err := p.KnowledgeBank(ctx, matchID)
	if err != nil {
		return introspect.FieldDescriptor{}, err
	}
	return kb.Field(dataset, field)
}

// RunReport loads the stored report of the last successful run of a match.
func (p *Pipeline) RunReport(ctx context.Context, matchID string) (*Report, error) {
	f, err := p.store.Open(ctx, matchID, repository.RunReport)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeReport(f)
}
