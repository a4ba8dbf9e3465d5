package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// StemSimilarity compares two filenames by their stems. Identical stems score
// 1; otherwise the stems are fingerprinted and compared by cosine similarity.
func StemSimilarity(a, b string) float64 {
	stemA := Stem(a)
	stemB := Stem(b)
	if stemA == "" || stemB == "" {
		return 0
	}
	if stemA == stemB {
		return 1
	}
	return CosineSimilarity(NewFingerprint(stemA), NewFingerprint(stemB))
}
