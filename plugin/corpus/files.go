package corpus

import (
	"bufio"
	"bytes"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/subjectindex/plugin/suggest"
)

// LoadSubjectsTSV parses `<uri>\tlabel[\tnotation]` lines.
// Blank lines are skipped; angle brackets around the URI are optional.
func LoadSubjectsTSV(r io.Reader) ([]suggest.Subject, error) {
	var subjects []suggest.Subject
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		uri := trimURI(fields[0])
		if uri == "" {
			return nil, errors.Errorf("line %d: missing subject URI", line)
		}
		s := suggest.Subject{URI: uri}
		if len(fields) > 1 {
			s.Label = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			s.Notation = strings.TrimSpace(fields[2])
		}
		subjects = append(subjects, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read subjects")
	}
	return subjects, nil
}

// LoadVocabularyFile reads a subject TSV file into a vocabulary.
func LoadVocabularyFile(path string) (*suggest.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open vocabulary %s", path)
	}
	defer f.Close()

	subjects, err := LoadSubjectsTSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse vocabulary %s", path)
	}
	return suggest.NewVocabulary(subjects), nil
}

func trimURI(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return s
}

// resolve fills in URIs and labels from the vocabulary. Entries that look
// like <uri> are URIs; anything else is treated as a label.
func resolve(vocab *suggest.Vocabulary, refs []string) (uris, labels []string) {
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if strings.HasPrefix(ref, "<") && strings.HasSuffix(ref, ">") {
			uri := trimURI(ref)
			label := ""
			if s, ok := vocab.ByURI(uri); ok {
				label = s.Label
			}
			uris = append(uris, uri)
			labels = append(labels, label)
			continue
		}
		if s, ok := vocab.ByLabel(ref); ok {
			uris = append(uris, s.URI)
			labels = append(labels, s.Label)
		}
	}
	return uris, labels
}

// maxDocumentLine bounds one line of a document file.
var maxDocumentLine = 16 * 1024 * 1024

// DocumentFile is a TSV corpus: `text<TAB><uri1> <uri2> ...` per line.
type DocumentFile struct {
	passErr
	path  string
	vocab *suggest.Vocabulary
}

// NewDocumentFile creates a corpus over a TSV document file.
func NewDocumentFile(path string, vocab *suggest.Vocabulary) *DocumentFile {
	return &DocumentFile{path: path, vocab: vocab}
}

func (f *DocumentFile) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		f.setErr(nil)
		file, err := os.Open(f.path)
		if err != nil {
			f.setErr(errors.Wrapf(err, "failed to open document file %s", f.path))
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 64*1024), maxDocumentLine)
		line := 0
		for scanner.Scan() {
			line++
			text, subjects, found := strings.Cut(scanner.Text(), "\t")
			if !found {
				continue
			}
			refs := splitSubjectRefs(subjects)
			uris, labels := resolve(f.vocab, refs)
			if !yield(Document{Text: text, URIs: uris, Labels: labels}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			f.setErr(errors.Wrapf(err, "failed to read document file %s after line %d", f.path, line))
		}
	}
}

func (f *DocumentFile) IsEmpty() bool {
	for range f.Documents() {
		return false
	}
	return true
}

// splitSubjectRefs splits "<a> <b>" into ["<a>", "<b>"]; a value without
// brackets is a single label.
func splitSubjectRefs(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return []string{s}
	}
	var refs []string
	for _, part := range strings.Fields(s) {
		refs = append(refs, part)
	}
	return refs
}

// DocumentDirectory is a corpus of `name.txt` files with subjects in a
// sibling `name.tsv` (`<uri>\tlabel` lines) or `name.key` (one label per line).
type DocumentDirectory struct {
	passErr
	path            string
	vocab           *suggest.Vocabulary
	requireSubjects bool
}

// NewDocumentDirectory creates a corpus over a directory. When
// requireSubjects is set, text files without a subject file are skipped.
func NewDocumentDirectory(path string, vocab *suggest.Vocabulary, requireSubjects bool) *DocumentDirectory {
	return &DocumentDirectory{path: path, vocab: vocab, requireSubjects: requireSubjects}
}

func (d *DocumentDirectory) textFiles() ([]string, error) {
	if _, err := os.Stat(d.path); err != nil {
		return nil, errors.Wrapf(err, "failed to open document directory %s", d.path)
	}
	matches, err := filepath.Glob(filepath.Join(d.path, "*.txt"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list document directory %s", d.path)
	}
	sort.Strings(matches)
	return matches, nil
}

func (d *DocumentDirectory) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		d.setErr(nil)
		files, err := d.textFiles()
		if err != nil {
			d.setErr(err)
			return
		}
		for _, txtPath := range files {
			doc, ok, err := d.readDocument(txtPath)
			if err != nil {
				d.setErr(err)
				return
			}
			if !ok {
				continue
			}
			if !yield(doc) {
				return
			}
		}
	}
}

// readDocument reads one text file and its subjects. ok is false when the
// document is skipped for lack of subjects.
func (d *DocumentDirectory) readDocument(txtPath string) (Document, bool, error) {
	text, err := os.ReadFile(txtPath)
	if err != nil {
		return Document{}, false, errors.Wrapf(err, "failed to read document %s", txtPath)
	}
	doc := Document{Text: string(text)}

	base := strings.TrimSuffix(txtPath, ".txt")
	data, err := readOptional(base + ".tsv")
	if err != nil {
		return Document{}, false, err
	}
	if data != nil {
		subjects, err := LoadSubjectsTSV(bytes.NewReader(data))
		if err != nil {
			return Document{}, false, errors.Wrapf(err, "failed to parse subject file %s.tsv", base)
		}
		for _, s := range subjects {
			label := s.Label
			if vs, ok := d.vocab.ByURI(s.URI); ok && label == "" {
				label = vs.Label
			}
			doc.URIs = append(doc.URIs, s.URI)
			doc.Labels = append(doc.Labels, label)
		}
		return doc, true, nil
	}

	data, err = readOptional(base + ".key")
	if err != nil {
		return Document{}, false, err
	}
	if data != nil {
		var refs []string
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				refs = append(refs, line)
			}
		}
		doc.URIs, doc.Labels = resolve(d.vocab, refs)
		return doc, true, nil
	}
	return doc, !d.requireSubjects, nil
}

// readOptional returns nil data without error when path does not exist.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read subject file %s", path)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (d *DocumentDirectory) IsEmpty() bool {
	for range d.Documents() {
		return false
	}
	return true
}
