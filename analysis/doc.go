// Package analysis turns raw extracted text into an AnalysisResult: cleaned
// text, overlapping sentence-aligned chunks, language, content type,
// quality, complexity, reading time, key phrases, topics and a structure
// descriptor.
//
// Analysis is pure in-memory computation. It never performs I/O and never
// returns an error.
//
// Quality is scored out of 100 from four weighted factors: length adequacy
// (30), structural richness such as headings and lists (20), coherence from
// the sentence length band and vocabulary size (35) and absence of
// boilerplate remnants (15). Scores of 80, 60 and 40 separate excellent,
// good, fair and poor.
//
// Complexity lies in [0,1]:
//
//	0.35*min(avgSentenceWords/30, 1) + 0.15*min(cv(sentenceWords), 1) +
//	0.25*min(avgWordLength/8, 1) + 0.25*typeTokenRatio
package analysis
