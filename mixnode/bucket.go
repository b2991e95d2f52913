package mixnode

// minBucketSize is the smallest power-of-two size-normalization bucket
// (spec §4.6: "{512, 1024, 2048, 4096, 8192, …}").
const minBucketSize = 512

// NormalizeSize rounds n up to the nearest power-of-two bucket at or above
// minBucketSize, defeating size-based traffic analysis.
func NormalizeSize(n int) int {
	bucket := minBucketSize
	for bucket < n {
		bucket *= 2
	}
	return bucket
}
