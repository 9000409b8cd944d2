package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		from uint64
		to   uint64
		size uint64
		want []BlockRange
	}{
		{
			name: "single block",
			from: 10, to: 10, size: 500,
			want: []BlockRange{{From: 10, To: 10}},
		},
		{
			name: "exact multiple",
			from: 0, to: 999, size: 500,
			want: []BlockRange{{From: 0, To: 499}, {From: 500, To: 999}},
		},
		{
			name: "last chunk truncated",
			from: 100, to: 1200, size: 500,
			want: []BlockRange{{From: 100, To: 599}, {From: 600, To: 1099}, {From: 1100, To: 1200}},
		},
		{
			name: "range smaller than chunk",
			from: 7, to: 42, size: 500,
			want: []BlockRange{{From: 7, To: 42}},
		},
		{
			name: "from after to yields nothing",
			from: 11, to: 10, size: 500,
			want: nil,
		},
		{
			name: "zero size yields nothing",
			from: 0, to: 10, size: 0,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunks(tt.from, tt.to, tt.size))
		})
	}
}

func TestChunksPartitionRange(t *testing.T) {
	for _, size := range []uint64{1, 2, 7, 100, 500} {
		for _, from := range []uint64{0, 1, 499, 500, 12345} {
			for _, span := range []uint64{0, 1, 498, 499, 500, 501, 2000, 2001} {
				to := from + span
				chunks := Chunks(from, to, size)
				require.NotEmpty(t, chunks)

				assert.Equal(t, from, chunks[0].From)
				assert.Equal(t, to, chunks[len(chunks)-1].To)

				var covered uint64
				for i, c := range chunks {
					assert.LessOrEqual(t, c.From, c.To)
					assert.LessOrEqual(t, c.Len(), size)
					if i > 0 {
						assert.Equal(t, chunks[i-1].To+1, c.From, "gap or overlap at chunk %d", i)
					}
					covered += c.Len()
				}
				assert.Equal(t, span+1, covered)
			}
		}
	}
}

func TestBlockRangeString(t *testing.T) {
	assert.Equal(t, "100-599", BlockRange{From: 100, To: 599}.String())
	assert.Equal(t, uint64(0), BlockRange{From: 5, To: 4}.Len())
}
