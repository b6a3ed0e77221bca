// Package corpus provides training document collections and vocabulary files.
package corpus

import (
	"iter"
	"sync"
)

// Document is one training document with its known subjects.
type Document struct {
	Text   string
	URIs   []string
	Labels []string
}

// HasSubjects reports whether the document carries at least one subject.
func (d Document) HasSubjects() bool {
	return len(d.URIs) > 0
}

// Corpus is a restartable sequence of documents. Every call to Documents
// starts a new pass from the beginning. Err reports the error that cut the
// most recent pass short, or nil when the pass ended normally.
type Corpus interface {
	Documents() iter.Seq[Document]
	IsEmpty() bool
	Err() error
}

// passErr records the error that ended the most recent pass.
type passErr struct {
	mu  sync.Mutex
	err error
}

func (p *passErr) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *passErr) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

type cachedCorpus struct{}

func (cachedCorpus) Documents() iter.Seq[Document] { return func(func(Document) bool) {} }
func (cachedCorpus) IsEmpty() bool                 { return true }
func (cachedCorpus) Err() error                    { return nil }

// Cached asks a backend to retrain from its previously prepared training data.
var Cached Corpus = cachedCorpus{}

// IsCached reports whether c is the Cached sentinel.
func IsCached(c Corpus) bool {
	_, ok := c.(cachedCorpus)
	return ok
}

// DocumentList is an in-memory corpus.
type DocumentList struct {
	docs []Document
}

// NewDocumentList creates a corpus from documents.
func NewDocumentList(docs ...Document) *DocumentList {
	return &DocumentList{docs: docs}
}

func (l *DocumentList) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for _, d := range l.docs {
			if !yield(d) {
				return
			}
		}
	}
}

func (l *DocumentList) IsEmpty() bool {
	return len(l.docs) == 0
}

func (l *DocumentList) Err() error { return nil }

// CombinedCorpus yields the documents of several corpora in order. A pass
// stops at the first corpus that fails.
type CombinedCorpus struct {
	passErr
	corpora []Corpus
}

// NewCombinedCorpus creates a corpus over corpora.
func NewCombinedCorpus(corpora ...Corpus) *CombinedCorpus {
	return &CombinedCorpus{corpora: corpora}
}

func (c *CombinedCorpus) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		c.setErr(nil)
		for _, sub := range c.corpora {
			for d := range sub.Documents() {
				if !yield(d) {
					return
				}
			}
			if err := sub.Err(); err != nil {
				c.setErr(err)
				return
			}
		}
	}
}

func (c *CombinedCorpus) IsEmpty() bool {
	for range c.Documents() {
		return false
	}
	return true
}

// LimitingCorpus yields at most Limit documents of the wrapped corpus.
type LimitingCorpus struct {
	Corpus Corpus
	Limit  int
}

func (l *LimitingCorpus) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		if l.Limit <= 0 {
			return
		}
		n := 0
		for d := range l.Corpus.Documents() {
			if !yield(d) {
				return
			}
			n++
			if n >= l.Limit {
				return
			}
		}
	}
}

func (l *LimitingCorpus) IsEmpty() bool {
	return l.Limit <= 0 || l.Corpus.IsEmpty()
}

func (l *LimitingCorpus) Err() error {
	if l.Limit <= 0 {
		return nil
	}
	return l.Corpus.Err()
}

// Count iterates c once and returns the number of documents.
func Count(c Corpus) int {
	n := 0
	for range c.Documents() {
		n++
	}
	return n
}
