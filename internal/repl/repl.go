// Package repl implements the interactive analysis menu.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/statloom-cli/internal/analysis"
	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// Executor runs one analysis request against a dataset.
type Executor interface {
	Run(ctx context.Context, ds *dataset.Dataset, req analysis.Request) (*analysis.Result, error)
}

// ErrLoad marks a dataset that could not be loaded. The user has already
// been told why.
var ErrLoad = errors.New("dataset not loaded")

const menu = `
What would you like to do?
1. Plot variable distribution
2. Conduct ANOVA
3. Conduct t-Test
4. Conduct chi-Square
5. Conduct Regression
6. Conduct Sentiment Analysis
7. Quit
`

var (
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
)

// Session owns the loaded dataset and drives the menu loop.
type Session struct {
	in   *lineReader
	out  io.Writer
	exec Executor
	log  zerolog.Logger
	ds   *dataset.Dataset
}

// New returns a Session reading answers from in and writing to out.
func New(in io.Reader, out io.Writer, exec Executor, log zerolog.Logger) *Session {
	return &Session{
		in:   newLineReader(in),
		out:  out,
		exec: exec,
		log:  log,
	}
}

// ChartDir returns a fresh per-session directory under base.
func ChartDir(base string) string {
	return filepath.Join(base, uuid.NewString())
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// PromptPath asks for the dataset location.
func (s *Session) PromptPath(ctx context.Context) (string, error) {
	return s.ask(ctx, "Enter the path to your dataset (CSV format): ")
}

// Load reads the dataset at path and reports the outcome to the user.
// Failures wrap ErrLoad.
func (s *Session) Load(path string, opt dataset.Options) error {
	start := time.Now()
	ds, err := dataset.Load(path, opt)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			fmt.Fprintln(s.out, "File not found. Please check the file path.")
		} else {
			fmt.Fprintf(s.out, "Failed to load dataset: %v\n", err)
		}
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	s.ds = ds
	s.log.Debug().
		Str("path", path).
		Int("rows", ds.Rows()).
		Int("columns", len(ds.Names())).
		Dur("took", time.Since(start)).
		Msg("dataset loaded")
	fmt.Fprintf(s.out, "Data loaded successfully from %s\n", path)
	return nil
}

// Run shows the menu until the user quits, input ends or ctx is cancelled.
// Quitting and end of input return nil.
func (s *Session) Run(ctx context.Context) error {
	if s.ds == nil {
		return ErrLoad
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, menu)
		choice, err := s.ask(ctx, "Enter your choice (1-7): ")
		if err != nil {
			return endOfInput(err)
		}
		switch choice {
		case "1":
			err = s.distribution(ctx)
		case "2":
			err = s.anova(ctx)
		case "3":
			err = s.columns(ctx, analysis.KindTTest, "Enter the grouping variable: ", "Enter the test variable: ")
		case "4":
			err = s.columns(ctx, analysis.KindChiSquare, "Enter the first categorical variable: ", "Enter the second categorical variable: ")
		case "5":
			err = s.columns(ctx, analysis.KindRegression, "Enter the independent variable: ", "Enter the dependent variable: ")
		case "6":
			fmt.Fprintln(s.out, "Searching for text data...")
			err = s.run(ctx, analysis.Request{Kind: analysis.KindSentiment})
		case "7":
			fmt.Fprintln(s.out, "Exiting the program.")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice. Please try again.")
		}
		if err != nil {
			return endOfInput(err)
		}
	}
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Session) available() {
	fmt.Fprintf(s.out, "Available variables: %v\n", s.ds.Names())
}

func (s *Session) distribution(ctx context.Context) error {
	s.available()
	col, err := s.ask(ctx, "Enter the variable to plot: ")
	if err != nil {
		return err
	}
	return s.run(ctx, analysis.Request{Kind: analysis.KindDistribution, Columns: []string{col}})
}

func (s *Session) anova(ctx context.Context) error {
	s.available()
	cols, err := s.askAll(ctx,
		"Enter a continuous (interval/ratio) variable: ",
		"Enter a categorical (ordinal/nominal) variable: ")
	if err != nil {
		return err
	}
	if s.ds.Has(cols...) {
		fmt.Fprintln(s.out, "Performing ANOVA...")
	}
	return s.run(ctx, analysis.Request{Kind: analysis.KindANOVA, Columns: cols})
}

func (s *Session) columns(ctx context.Context, kind analysis.Kind, prompts ...string) error {
	cols, err := s.askAll(ctx, prompts...)
	if err != nil {
		return err
	}
	return s.run(ctx, analysis.Request{Kind: kind, Columns: cols})
}

// run executes req and prints its outcome. Only context errors are returned;
// everything else is reported and the menu continues.
func (s *Session) run(ctx context.Context, req analysis.Request) error {
	res, err := s.exec.Run(ctx, s.ds, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.report(req.Kind, err)
		return nil
	}
	Print(s.out, res)
	return nil
}

func (s *Session) report(kind analysis.Kind, err error) {
	s.log.Debug().Err(err).Str("routine", string(kind)).Msg("routine failed")
	var ce *analysis.ColumnError
	switch {
	case errors.As(err, &ce):
		fmt.Fprintln(s.out, invalidColumns(kind))
	case errors.Is(err, analysis.ErrNoTextColumn):
		fmt.Fprintln(s.out, "No suitable text data found for sentiment analysis.")
	default:
		errColor.Fprintln(s.out, sentence(err.Error()))
	}
}

func invalidColumns(kind analysis.Kind) string {
	switch kind {
	case analysis.KindDistribution:
		return "Invalid column name."
	case analysis.KindANOVA:
		return "Invalid column names. Please try again."
	}
	return "Invalid column names."
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	r := []rune(msg)
	if len(r) == 0 {
		return msg
	}
	r[0] = unicode.ToUpper(r[0])
	out := string(r)
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

func (s *Session) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	return s.in.next(ctx)
}

func (s *Session) askAll(ctx context.Context, prompts ...string) ([]string, error) {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		v, err := s.ask(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type line struct {
	text string
	err  error
}

// lineReader delivers input lines on demand so that a pending read can be
// abandoned when the context is cancelled.
type lineReader struct {
	r      *bufio.Reader
	ch     chan line
	quit   chan struct{} // closed once the consumer stops listening
	exited chan struct{} // closed when the reading goroutine returns
	done   bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) start() {
	l.ch = make(chan line)
	l.quit = make(chan struct{})
	l.exited = make(chan struct{})
	go func() {
		defer close(l.exited)
		defer close(l.ch)
		send := func(ln line) bool {
			select {
			case l.ch <- ln:
				return true
			case <-l.quit:
				return false
			}
		}
		for {
			s, err := l.r.ReadString('\n')
			if err == nil {
				if !send(line{text: strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")}) {
					return
				}
				continue
			}
			if s != "" && !send(line{text: s}) {
				return
			}
			send(line{err: err})
			return
		}
	}()
}

func (l *lineReader) next(ctx context.Context) (string, error) {
	if l.done {
		return "", io.EOF
	}
	if l.ch == nil {
		l.start()
	}
	select {
	case <-ctx.Done():
		// The pending read cannot be interrupted; release the goroutine
		// so it exits once the read returns.
		l.done = true
		close(l.quit)
		return "", ctx.Err()
	case ln, ok := <-l.ch:
		if !ok {
			l.done = true
			return "", io.EOF
		}
		if ln.err != nil {
			l.done = true
		}
		return ln.text, ln.err
	}
}
