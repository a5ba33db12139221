// Package dictionary reads pinyin dictionaries into a lexicon.Index.
//
// Two formats exist: a text format of "pinyin word frequency" lines
// ("ni3'hao3 你好 100") and a binary msgpack stream produced by WriteBinary.
// The Loader inserts the first file synchronously so the engine can answer
// right away, then loads the remaining files in the background.
package dictionary

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/charmbracelet/log"
)

//go:embed base.txt
var baseText string

// Base returns the records of the embedded base dictionary.
func Base() ([]lexicon.Record, error) {
	return ReadText(strings.NewReader(baseText))
}

// LoadFile reads a dictionary file of any supported format.
func LoadFile(filename string) ([]lexicon.Record, error) {
	format, err := DetectFileFormat(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", filename, err)
	}
	defer file.Close()

	switch format {
	case FormatBinary:
		return ReadBinary(file)
	case FormatText:
		return ReadText(file)
	}
	return nil, fmt.Errorf("unsupported format %v for %s", format, filename)
}

// LoaderStats provides statistics about the loading process
type LoaderStats struct {
	Files       int
	LoadedFiles int
	FailedFiles int
	Records     int
	IsLoading   bool
}

// Loader fills an index from dictionary files.
type Loader struct {
	index      *lexicon.Index
	files      []string
	loadingCh  chan string
	done       chan struct{}
	stopOnce   sync.Once
	pending    sync.WaitGroup
	mu         sync.Mutex
	errorCount map[string]int
	maxRetries int
	retryDelay time.Duration
	loaded     int
	failed     int
	records    int
}

// NewLoader creates a loader for files, in priority order.
func NewLoader(index *lexicon.Index, files []string) *Loader {
	return &Loader{
		index:      index,
		files:      files,
		loadingCh:  make(chan string, max(len(files), 1)),
		done:       make(chan struct{}),
		errorCount: make(map[string]int),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// SetMaxRetries sets how often a background file is tried. Values below 1 are ignored.
func (l *Loader) SetMaxRetries(n int) {
	if n > 0 {
		l.maxRetries = n
	}
}

// Start loads the first file and queues the rest for the background loader.
// Only a failure on the first file is returned.
func (l *Loader) Start() error {
	if len(l.files) == 0 {
		return fmt.Errorf("no dictionary files given")
	}
	if err := l.loadFile(l.files[0]); err != nil {
		return fmt.Errorf("failed to load %s: %w", l.files[0], err)
	}

	rest := l.files[1:]
	if len(rest) == 0 {
		return nil
	}
	l.pending.Add(len(rest))
	go l.backgroundLoader()
	for _, f := range rest {
		l.loadingCh <- f
		log.Debugf("Queued dictionary %s for loading", f)
	}
	return nil
}

// backgroundLoader runs in a goroutine and loads files from the queue
func (l *Loader) backgroundLoader() {
	for {
		select {
		case file := <-l.loadingCh:
			if err := l.loadFile(file); err != nil {
				log.Errorf("Failed to load dictionary %s: %v", file, err)

				l.mu.Lock()
				l.errorCount[file]++
				errorCount := l.errorCount[file]
				l.mu.Unlock()

				if errorCount < l.maxRetries {
					log.Debugf("Retrying %s (attempt %d/%d)", file, errorCount+1, l.maxRetries)
					go func(f string) {
						time.Sleep(time.Duration(errorCount) * l.retryDelay)
						select {
						case l.loadingCh <- f:
						case <-l.done:
							l.pending.Done()
						}
					}(file)
					continue
				}
				log.Errorf("Dictionary %s failed %d times, giving up", file, l.maxRetries)
				l.mu.Lock()
				l.failed++
				l.mu.Unlock()
			}
			l.pending.Done()
		case <-l.done:
			return
		}
	}
}

func (l *Loader) loadFile(file string) error {
	records, err := LoadFile(file)
	if err != nil {
		return err
	}
	n := l.index.Load(records)

	l.mu.Lock()
	l.loaded++
	l.records += n
	l.mu.Unlock()
	log.Debugf("Loaded %d records from %s", n, file)
	return nil
}

// Wait blocks until every queued file is loaded or abandoned, or the loader stops.
func (l *Loader) Wait() {
	settled := make(chan struct{})
	go func() {
		l.pending.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-l.done:
	}
}

// Stats returns current loading statistics
func (l *Loader) Stats() LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoaderStats{
		Files:       len(l.files),
		LoadedFiles: l.loaded,
		FailedFiles: l.failed,
		Records:     l.records,
		IsLoading:   l.loaded+l.failed < len(l.files),
	}
}

// Stop stops the background loading process
func (l *Loader) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}
