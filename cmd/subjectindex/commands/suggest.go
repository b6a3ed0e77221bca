package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/plugin/textextract"
)

var (
	suggestLimit     int
	suggestThreshold float64
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <project> [file...]",
	Short: "Suggest subjects for text",
	Long: `Suggest subjects for text read from stdin, or for each of the given files.
Files other than plain text are converted by the Tika server configured
with extract.tika_url.

Output is one "<uri>\tlabel\tscore" line per subject. With several files,
each block is preceded by the file name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, paths := args[0], args[1:]

		extractor := textextract.NewClient(prof.TikaURL, prof.TikaTimeout)
		texts, err := readTexts(cmd.Context(), extractor, cmd.InOrStdin(), paths)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.SuggestBatch(cmd.Context(), projectID, texts)
		if err != nil {
			return err
		}
		for i := range results {
			results[i] = results[i].Filter(suggestThreshold, suggestLimit)
		}

		if outputJSON {
			return printJSON(cmd, suggestionsJSON(paths, results))
		}
		out := cmd.OutOrStdout()
		for i, r := range results {
			if len(paths) > 1 {
				fmt.Fprintf(out, "%s:\n", paths[i])
			}
			for _, h := range r.Hits() {
				fmt.Fprintf(out, "<%s>\t%s\t%.4f\n", h.Subject.URI, h.Subject.Label, h.Score)
			}
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 10, "maximum number of subjects to show (0 for all)")
	suggestCmd.Flags().Float64Var(&suggestThreshold, "threshold", 0, "minimum score of a subject")
}

// readTexts reads stdin, or each file through the extractor.
func readTexts(ctx context.Context, extractor *textextract.Client, stdin io.Reader, paths []string) ([]string, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read stdin")
		}
		return []string{string(data)}, nil
	}
	texts := make([]string, 0, len(paths))
	for _, path := range paths {
		text, err := extractor.ReadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

type suggestionJSON struct {
	URI      string  `json:"uri"`
	Label    string  `json:"label"`
	Notation string  `json:"notation,omitempty"`
	Score    float64 `json:"score"`
}

type documentSuggestionsJSON struct {
	Document string           `json:"document,omitempty"`
	Results  []suggestionJSON `json:"results"`
}

func suggestionsJSON(paths []string, results []*suggest.Result) []documentSuggestionsJSON {
	out := make([]documentSuggestionsJSON, len(results))
	for i, r := range results {
		if i < len(paths) {
			out[i].Document = paths[i]
		}
		out[i].Results = make([]suggestionJSON, 0, r.Len())
		for _, h := range r.Hits() {
			out[i].Results = append(out[i].Results, suggestionJSON{
				URI:      h.Subject.URI,
				Label:    h.Subject.Label,
				Notation: h.Subject.Notation,
				Score:    h.Score,
			})
		}
	}
	return out
}
