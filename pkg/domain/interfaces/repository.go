package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Document() DocumentRepository
	Narrative() NarrativeRepository
	Mention() MentionRepository
	Signal() SignalRepository
	Cache() CacheRepository
	Cost() CostRepository

	Close() error
}
