package document

import "github.com/seenimoa/stockqa/pkg/models"

// BuildCorpus concatenates per-source batches in the order given.
func BuildCorpus(batches ...[]models.Document) models.Corpus {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	docs := make([]models.Document, 0, total)
	for _, b := range batches {
		docs = append(docs, b...)
	}
	return models.Corpus{Documents: docs, Count: len(docs)}
}
