package memory

import (
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
)

// Memory is an in-memory implementation of interfaces.Repository.
// Used for local development and tests.
type Memory struct {
	document  *documentRepository
	narrative *narrativeRepository
	mention   *mentionRepository
	signal    *signalRepository
	cache     *cacheRepository
	cost      *costRepository
}

var _ interfaces.Repository = &Memory{}

// New creates a new in-memory repository
func New() *Memory {
	return &Memory{
		document:  newDocumentRepository(),
		narrative: newNarrativeRepository(),
		mention:   newMentionRepository(),
		signal:    newSignalRepository(),
		cache:     newCacheRepository(),
		cost:      newCostRepository(),
	}
}

func (m *Memory) Document() interfaces.DocumentRepository {
	return m.document
}

func (m *Memory) Narrative() interfaces.NarrativeRepository {
	return m.narrative
}

func (m *Memory) Mention() interfaces.MentionRepository {
	return m.mention
}

func (m *Memory) Signal() interfaces.SignalRepository {
	return m.signal
}

func (m *Memory) Cache() interfaces.CacheRepository {
	return m.cache
}

func (m *Memory) Cost() interfaces.CostRepository {
	return m.cost
}

func (m *Memory) Close() error {
	return nil
}
