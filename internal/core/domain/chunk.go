package domain

import "time"

// ChunkRecord is a pre-chunked unit of job-description text awaiting indexing.
type ChunkRecord struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkBatch struct {
	BatchID     string        `json:"batch_id"`
	Chunks      []ChunkRecord `json:"chunks"`
	PublishedAt time.Time     `json:"published_at"`
}
