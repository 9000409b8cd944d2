package events

import "fmt"

// DefaultChunkSize is the widest block range requested in one log query
const DefaultChunkSize uint64 = 500

// BlockRange is an inclusive range of block numbers
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Len returns the number of blocks covered by the range
func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Chunks partitions [from, to] into contiguous ranges of at most size blocks.
// The last chunk is truncated to to. Returns nil when from > to or size is zero.
func Chunks(from, to, size uint64) []BlockRange {
	if from > to || size == 0 {
		return nil
	}

	chunks := make([]BlockRange, 0, (to-from)/size+1)
	for start := from; ; start += size {
		end := start + size - 1
		if end > to || end < start {
			end = to
		}
		chunks = append(chunks, BlockRange{From: start, To: end})
		if end == to {
			break
		}
	}
	return chunks
}
