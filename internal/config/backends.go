package config

const (
	// QueueRedis pops job payloads from a Redis list with BLPOP.
	QueueRedis = "redis"

	// QueueNSQ consumes job payloads from an NSQ topic.
	QueueNSQ = "nsq"

	VectorQdrant   = "qdrant"
	VectorWeaviate = "weaviate"

	ProviderCohere = "cohere"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)
