package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/engine"
	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Predictor is the engine surface the server drives.
type Predictor interface {
	Submit(req engine.Request) uint64
	WordCandidateSelected(word string)
	LanguageFeature() lang.Features
	Stats() map[string]int
}

type inflight struct {
	id    string
	start time.Time
}

// Server handles the IPC for pinyin predictions
type Server struct {
	dec        *msgpack.Decoder
	out        *bufio.Writer
	enc        *msgpack.Encoder
	writeMu    sync.Mutex
	maxPreedit int

	mu      sync.Mutex
	pending map[uint64]inflight
	stats   map[string]func() map[string]int

	requestCount int
}

// NewServer creates a server reading requests from in and writing to out.
// maxPreedit bounds the preedit length in runes; 0 disables the bound.
func NewServer(in io.Reader, out io.Writer, maxPreedit int) *Server {
	w := bufio.NewWriter(out)
	return &Server{
		dec:        msgpack.NewDecoder(bufio.NewReader(in)),
		out:        w,
		enc:        msgpack.NewEncoder(w),
		maxPreedit: maxPreedit,
		pending:    make(map[uint64]inflight),
		stats:      make(map[string]func() map[string]int),
	}
}

// AddStats exposes fn under name in stats responses.
func (s *Server) AddStats(name string, fn func() map[string]int) {
	s.mu.Lock()
	s.stats[name] = fn
	s.mu.Unlock()
}

// Serve answers requests until in is exhausted. Register Deliver as the
// engine's suggestion handler before calling it.
func (s *Server) Serve(p Predictor) error {
	log.Debug("Starting Server.")
	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Input closed, stopping server")
				return nil
			}
			log.Errorf("Reading request: %v", err)
			s.sendError("", "malformed msgpack stream", 400)
			return fmt.Errorf("reading request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			log.Warnf("Unmarshaling request: %v", err)
			s.sendError("", "invalid request", 400)
			continue
		}
		s.handleRequest(p, req)
	}
}

func (s *Server) handleRequest(p Predictor, req Request) {
	s.requestCount++
	log.Debugf("Request %d: %s %q", s.requestCount, req.Op, req.ID)

	switch req.Op {
	case OpPredict:
		s.handlePredict(p, req)
	case OpSelect:
		if req.Word == "" {
			s.sendError(req.ID, "missing 'w' parameter", 400)
			return
		}
		p.WordCandidateSelected(req.Word)
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case OpFeatures:
		f := p.LanguageFeature()
		s.sendResponse(FeaturesResponse{
			ID:                    req.ID,
			LanguageID:            f.LanguageID(),
			MaxSuggestions:        f.MaxSuggestions(),
			ToneSignificant:       f.ToneSignificant(),
			AlwaysShowSuggestions: f.AlwaysShowSuggestions(),
			AutoCompleteOnSpace:   f.AutoCompleteOnSpace(),
			WordSeparators:        f.WordSeparators(),
		})
	case OpStats:
		s.sendResponse(StatsResponse{ID: req.ID, Stats: s.collectStats(p)})
	case OpHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handlePredict(p Predictor, req Request) {
	if s.maxPreedit > 0 && utf8.RuneCountInString(req.Preedit) > s.maxPreedit {
		s.sendError(req.ID, fmt.Sprintf("preedit exceeds maximum length of %d", s.maxPreedit), 400)
		return
	}

	// hold mu across Submit so Deliver cannot see the generation before it is recorded
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := p.Submit(engine.Request{SurroundingLeft: req.Left, Preedit: req.Preedit, Tag: req.ID})
	if gen == 0 {
		s.sendError(req.ID, "engine stopped", 503)
		return
	}
	s.pending[gen] = inflight{id: req.ID, start: time.Now()}
}

// Deliver is the engine suggestion handler. It answers the predict request
// res belongs to and forgets every older one, since those can no longer be
// delivered.
func (s *Server) Deliver(res engine.Result) {
	s.mu.Lock()
	req, ok := s.pending[res.Seq]
	for gen := range s.pending {
		if gen <= res.Seq {
			delete(s.pending, gen)
		}
	}
	s.mu.Unlock()

	if !ok {
		req = inflight{id: res.Tag, start: time.Now()}
	}

	ranks := utils.CreateRankList(len(res.Suggestions))
	suggestions := make([]Suggestion, len(res.Suggestions))
	for i, w := range res.Suggestions {
		suggestions[i] = Suggestion{Word: w, Rank: ranks[i]}
	}
	s.sendResponse(PredictResponse{
		ID:          req.id,
		Word:        res.Word,
		Suggestions: suggestions,
		Count:       len(suggestions),
		Unmatched:   res.Unmatched,
		TimeTaken:   time.Since(req.start).Microseconds(),
	})
}

func (s *Server) collectStats(p Predictor) map[string]map[string]int {
	out := map[string]map[string]int{"engine": p.Stats()}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, fn := range s.stats {
		out[name] = fn()
	}
	out["server"] = map[string]int{"pending": len(s.pending)}
	return out
}

// sendResponse encodes one response and flushes it.
func (s *Server) sendResponse(response any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}
