// Package textutil provides text processing utilities for filename
// sanitization and lightweight similarity scoring.
//
// Fingerprints use term frequency vectors normalized for efficient
// comparison. StemSimilarity strips extensions and trailing sequence counters
// before comparing, so burst shots from the same camera counter compare as
// identical.
package textutil
