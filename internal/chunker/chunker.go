package chunker

// Chunk is one bounded-size slice of unique texts sent in a single remote
// request. Start is the absolute offset of Texts[0] in the full list, so
// item ids stay position-aligned across chunks.
type Chunk struct {
	Index int
	Start int
	Texts []string
}

// Split partitions texts into chunks of at most size elements, in order.
func Split(texts []string, size int) []Chunk {
	if size <= 0 {
		size = 1
	}
	var chunks []Chunk
	n := len(texts)

	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: i,
			Texts: texts[i:end],
		})
	}

	return chunks
}
