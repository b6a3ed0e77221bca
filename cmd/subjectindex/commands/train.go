package commands

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

var (
	trainCached bool
	docsLimit   int
)

var trainCmd = &cobra.Command{
	Use:   "train <project> [path...]",
	Short: "Train a project's backend",
	Long: `Train a project's backend on a corpus.

A path is either a TSV document file ("text<TAB><uri1> <uri2>" per line)
or a directory of .txt files with subjects in sibling .tsv or .key files.
Use --cached to retrain from the backend's previously prepared data.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, args, trainCached, func(a *app, c corpus.Corpus) error {
			return a.Train(cmd.Context(), args[0], c)
		})
	},
}

var learnCmd = &cobra.Command{
	Use:   "learn <project> <path...>",
	Short: "Update a project's backend with new documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, args, false, func(a *app, c corpus.Corpus) error {
			return a.Learn(cmd.Context(), args[0], c)
		})
	},
}

func init() {
	trainCmd.Flags().BoolVar(&trainCached, "cached", false, "reuse previously prepared training data")
	for _, cmd := range []*cobra.Command{trainCmd, learnCmd} {
		cmd.Flags().IntVar(&docsLimit, "docs-limit", 0, "maximum number of documents to use (0 for all)")
	}
}

func runUpdate(cmd *cobra.Command, args []string, cached bool, fn func(*app, corpus.Corpus) error) error {
	projectID, paths := args[0], args[1:]
	if cached && len(paths) > 0 {
		return errors.New("--cached cannot be combined with corpus paths")
	}
	if !cached && len(paths) == 0 {
		return errors.New("no corpus paths given")
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := corpus.Cached
	if !cached {
		p, err := a.Project(projectID)
		if err != nil {
			return err
		}
		if c, err = openCorpus(paths, p.Vocabulary); err != nil {
			return err
		}
		if docsLimit > 0 {
			c = &corpus.LimitingCorpus{Corpus: c, Limit: docsLimit}
		}
	}
	return fn(a, c)
}

func openCorpus(paths []string, vocab *suggest.Vocabulary) (corpus.Corpus, error) {
	corpora := make([]corpus.Corpus, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open corpus %s", path)
		}
		switch {
		case info.IsDir():
			corpora = append(corpora, corpus.NewDocumentDirectory(path, vocab, true))
		case strings.HasSuffix(path, ".tsv"):
			corpora = append(corpora, corpus.NewDocumentFile(path, vocab))
		default:
			return nil, errors.Errorf("unsupported corpus %s: expected a directory or a .tsv file", path)
		}
	}
	if len(corpora) == 1 {
		return corpora[0], nil
	}
	return corpus.NewCombinedCorpus(corpora...), nil
}
